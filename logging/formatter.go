package logging

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Formatter 把日志条目转换为一行输出
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

const defaultTimestampFormat = "2006-01-02 15:04:05"

// TextFormatter 文本格式化器
//
//	2024-01-02 15:04:05 DEBUG [di] registered {type=*app.UserService, resolver=*di.SingletonResolver}
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  defaultTimestampFormat,
	}
}

var buffers = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// Format 格式化日志。返回的切片不引用内部 buffer，可以交给 AsyncWriter 异步写出。
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		if buf.Cap() <= 64<<10 {
			buffers.Put(buf)
		}
	}()

	if f.IncludeTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = defaultTimestampFormat
		}
		buf.WriteString(entry.Time.Format(layout))
		buf.WriteByte(' ')
	}

	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, entry.Level.String()))
	} else {
		buf.WriteString(entry.Level.String())
	}
	if entry.Category != "" {
		buf.WriteString(" [")
		buf.WriteString(entry.Category)
		buf.WriteByte(']')
	}
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buf.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(field.Key)
			buf.WriteByte('=')
			buf.WriteString(quoteIfNeeded(fieldString(field.Value)))
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('\n')

	return bytes.Clone(buf.Bytes()), nil
}

// fieldString 字段值的文本形式；reflect.Type 输出完整类型名
func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case error:
		return val.Error()
	case reflect.Type:
		return val.String()
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// quoteIfNeeded 含有分隔符的值加引号，保持一行可以按字段切分
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " ,={}\"\n") {
		return strconv.Quote(s)
	}
	return s
}
