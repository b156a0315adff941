package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// WriterLoggerOptions 输出到 io.Writer 的日志选项
type WriterLoggerOptions struct {
	Output    io.Writer
	Formatter Formatter
	// Async 为 true 时通过 AsyncWriter 在后台格式化并写入
	Async      bool
	BufferSize int
}

// WriterLoggerProvider 把日志格式化后写入 io.Writer 的提供者，控制台和文件日志都基于它
type WriterLoggerProvider struct {
	options      WriterLoggerOptions
	minimumLevel LogLevel
	async        *AsyncWriter
	closer       io.Closer
	mu           sync.RWMutex
	writeMu      sync.Mutex
}

// NewWriterLoggerProvider 创建写入器日志提供者
func NewWriterLoggerProvider(options WriterLoggerOptions) *WriterLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.Formatter == nil {
		options.Formatter = NewTextFormatter()
	}
	p := &WriterLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
	}
	if options.Async {
		size := options.BufferSize
		if size <= 0 {
			size = 1024
		}
		p.async = NewAsyncWriter(options.Output, options.Formatter, size)
	}
	return p
}

func (p *WriterLoggerProvider) CreateLogger(category string) Logger {
	return &writerLogger{provider: p, category: category}
}

func (p *WriterLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *WriterLoggerProvider) enabled(level LogLevel) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return level >= p.minimumLevel && level < LogLevelNone
}

func (p *WriterLoggerProvider) write(entry *LogEntry) {
	if p.async != nil {
		p.async.WriteLog(entry)
		return
	}
	data, err := p.options.Formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	writeLine(p.options.Output, data)
}

// Close 刷新异步缓冲并关闭底层文件（如果有）
func (p *WriterLoggerProvider) Close() error {
	if p.async != nil {
		p.async.Close()
	}
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// writerLogger 写入器日志实现
type writerLogger struct {
	provider *WriterLoggerProvider
	category string
	fields   []Field
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	l.provider.Close()
	os.Exit(1)
}

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	if !l.provider.enabled(level) {
		return
	}
	l.provider.write(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	return &writerLogger{provider: l.provider, category: l.category, fields: mergeFields(l.fields, fields)}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{provider: l.provider, category: category, fields: l.fields}
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// NewConsoleLoggerProvider 创建控制台日志提供者（文本格式）
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *WriterLoggerProvider {
	return NewWriterLoggerProvider(WriterLoggerOptions{
		Output: options.Output,
		Formatter: &TextFormatter{
			IncludeTimestamp: options.IncludeTimestamp,
			TimestampFormat:  options.TimestampFormat,
			ColorOutput:      options.ColorOutput,
		},
	})
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string
	// Json 为 true 时每行输出一个 JSON 对象
	Json       bool
	Async      bool
	BufferSize int
}

// NewFileLoggerProvider 创建文件日志提供者，文件以追加方式打开
func NewFileLoggerProvider(options FileLoggerOptions) (*WriterLoggerProvider, error) {
	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file %s: %w", options.Path, err)
	}
	var formatter Formatter = NewTextFormatter()
	if options.Json {
		formatter = NewJsonFormatter()
	}
	p := NewWriterLoggerProvider(WriterLoggerOptions{
		Output:     file,
		Formatter:  formatter,
		Async:      options.Async,
		BufferSize: options.BufferSize,
	})
	p.closer = file
	return p, nil
}

// writeLine 写入一条格式化后的日志，结尾没有换行时补一个
func writeLine(w io.Writer, data []byte) error {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err := w.Write(data)
	return err
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}
