package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerProvider 基于 zap 的日志提供者
type ZapLoggerProvider struct {
	base         *zap.Logger
	minimumLevel LogLevel
	mu           sync.RWMutex
}

// NewZapLoggerProvider 使用已有的 zap.Logger 创建提供者，logger 为 nil 时使用 zap.NewProduction
func NewZapLoggerProvider(logger *zap.Logger) (*ZapLoggerProvider, error) {
	if logger == nil {
		var err error
		if logger, err = zap.NewProduction(); err != nil {
			return nil, err
		}
	}
	return &ZapLoggerProvider{base: logger, minimumLevel: LogLevelInfo}, nil
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	zl := p.base
	if category != "" {
		zl = zl.Named(category)
	}
	return &zapLogger{provider: p, zl: zl}
}

func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Sync 刷新 zap 缓冲
func (p *ZapLoggerProvider) Sync() error {
	return p.base.Sync()
}

func (p *ZapLoggerProvider) enabled(level LogLevel) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return level >= p.minimumLevel && level < LogLevelNone
}

// zapLogger 把 Logger 接口适配到 zap
type zapLogger struct {
	provider *ZapLoggerProvider
	zl       *zap.Logger
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *zapLogger) Fatal(msg string, fields ...Field) {
	l.zl.Fatal(msg, zapFields(fields)...)
}

// Log 写入一条日志；FATAL 只记录不退出，退出由 Fatal 负责
func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if !l.provider.enabled(level) {
		return
	}
	zf := zapFields(fields)
	if level == LogLevelFatal {
		zf = append(zf, zap.String("severity", level.String()))
	}
	l.zl.Log(zapLevel(level), msg, zf...)
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{provider: l.provider, zl: l.zl.With(zapFields(fields)...)}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{provider: l.provider, zl: l.provider.base.Named(category)}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
