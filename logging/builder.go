package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	errors       []error
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		providers:    make([]LoggerProvider, 0),
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddWriter 添加输出到任意 io.Writer 的日志
func (b *LoggingBuilder) AddWriter(w io.Writer, formatter Formatter) *LoggingBuilder {
	return b.AddProvider(NewWriterLoggerProvider(WriterLoggerOptions{Output: w, Formatter: formatter}))
}

// AddFile 添加文件日志，打开文件失败的错误在 Build 时返回
func (b *LoggingBuilder) AddFile(path string, options ...FileLoggerOptions) *LoggingBuilder {
	opts := FileLoggerOptions{Path: path}
	if len(options) > 0 {
		opts = options[0]
		opts.Path = path
	}
	provider, err := NewFileLoggerProvider(opts)
	if err != nil {
		b.mu.Lock()
		b.errors = append(b.errors, err)
		b.mu.Unlock()
		return b
	}
	return b.AddProvider(provider)
}

// AddZap 添加 zap 日志，logger 为 nil 时使用 zap.NewProduction
func (b *LoggingBuilder) AddZap(logger *zap.Logger) *LoggingBuilder {
	provider, err := NewZapLoggerProvider(logger)
	if err != nil {
		b.mu.Lock()
		b.errors = append(b.errors, fmt.Errorf("logging: create zap logger: %w", err))
		b.mu.Unlock()
		return b
	}
	return b.AddProvider(provider)
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() (LoggerFactory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.errors) > 0 {
		return nil, fmt.Errorf("logging: configuration errors: %v", b.errors)
	}

	factory := &loggerFactory{
		providers:    make([]LoggerProvider, 0, len(b.providers)),
		minimumLevel: b.minimumLevel,
	}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory, nil
}
