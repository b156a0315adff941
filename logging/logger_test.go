package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	f.ColorOutput = false
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	str := string(out)
	if !strings.Contains(str, "INFO") {
		t.Error("Expected level INFO")
	}
	if !strings.Contains(str, "[Test]") {
		t.Error("Expected category [Test]")
	}
	if !strings.Contains(str, "Hello") {
		t.Error("Expected message Hello")
	}
	if !strings.Contains(str, "key=val") {
		t.Error("Expected field key=val")
	}
}

func TestTextFormatter_FieldValues(t *testing.T) {
	f := &TextFormatter{}
	out, err := f.Format(&LogEntry{
		Level:   LogLevelDebug,
		Message: "resolved",
		Fields: []Field{
			{Key: "type", Value: reflect.TypeFor[*bytes.Buffer]()},
			{Key: "error", Value: errors.New("not found")},
			{Key: "empty", Value: ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "DEBUG resolved {type=*bytes.Buffer, error=\"not found\", empty=\"\"}\n", string(out))
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelWarn,
		Category: "Test",
		Message:  "Hello",
		Fields: []Field{
			{Key: "key", Value: "val"},
			{Key: "error", Value: errors.New("boom")},
		},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out, &data))

	assert.Equal(t, "WARN", data["level"])
	assert.Equal(t, "Test", data["category"])
	fields, ok := data["fields"].(map[string]any)
	require.True(t, ok, "Expected fields map")
	assert.Equal(t, "val", fields["key"])
	assert.Equal(t, "boom", fields["error"])
}

func TestAsyncWriter(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex

	writer := &syncWriter{buf: &buf, mu: &mu}

	formatter := NewTextFormatter()
	asyncWriter := NewAsyncWriter(writer, formatter, 10)

	entry := &LogEntry{
		Time:    time.Now(),
		Level:   LogLevelInfo,
		Message: "Async",
	}

	for i := 0; i < 5; i++ {
		asyncWriter.WriteLog(entry)
	}

	// 关闭以刷新
	asyncWriter.Close()

	lines := strings.Split(strings.TrimSpace(writer.String()), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(lines))
	}
}

func TestWriterLogger_LevelFieldsCategory(t *testing.T) {
	var buf bytes.Buffer
	factory, err := NewLoggingBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddWriter(&buf, &TextFormatter{}).
		Build()
	require.NoError(t, err)

	logger := factory.CreateLogger("di").WithFields(Field{Key: "scope", Value: "root"})
	logger.Trace("hidden")
	logger.Debug("registered", Field{Key: "type", Value: "int"})
	logger.WithCategory("describe").Info("parsed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "DEBUG [di] registered {scope=root, type=int}")
	assert.Contains(t, out, "INFO [describe] parsed {scope=root}")
}

func TestFileLoggerProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	factory, err := NewLoggingBuilder().
		AddFile(path, FileLoggerOptions{Json: true, Async: true}).
		Build()
	require.NoError(t, err)

	factory.CreateLogger("file").Info("written", Field{Key: "n", Value: 1})

	// 关闭 provider 以刷新异步缓冲
	lf := factory.(*loggerFactory)
	require.Len(t, lf.providers, 1)
	require.NoError(t, lf.providers[0].(*WriterLoggerProvider).Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "written", line["msg"])
	assert.Equal(t, "file", line["category"])
}

func TestLoggingBuilder_FileError(t *testing.T) {
	_, err := NewLoggingBuilder().
		AddFile(filepath.Join(t.TempDir(), "missing", "dir", "app.log")).
		Build()
	assert.Error(t, err)
}

func TestZapLoggerProvider(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider, err := NewZapLoggerProvider(zap.New(core))
	require.NoError(t, err)

	factory, err := NewLoggingBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddProvider(provider).
		Build()
	require.NoError(t, err)

	logger := factory.CreateLogger("injector")
	logger.Debug("resolve", Field{Key: "type", Value: "string"})
	logger.Error("failed", Field{Key: "error", Value: errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "injector", entries[0].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "string", entries[0].ContextMap()["type"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, level)

	level, err = ParseLogLevel("OFF")
	require.NoError(t, err)
	assert.Equal(t, LogLevelNone, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := Nop()
	logger.Info("ignored")
	assert.Equal(t, logger, logger.WithFields(Field{Key: "a", Value: 1}).WithCategory("x"))
}

type syncWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func BenchmarkAsyncLogging(b *testing.B) {
	formatter := NewTextFormatter()
	// 使用 io.Discard 避免 I/O 瓶颈，测试 AsyncWriter 自身的开销
	asyncWriter := NewAsyncWriter(io.Discard, formatter, 10000)
	defer asyncWriter.Close()

	entry := &LogEntry{
		Time:    time.Now(),
		Level:   LogLevelInfo,
		Message: "Benchmark",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		asyncWriter.WriteLog(entry)
	}
}
