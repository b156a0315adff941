package logging

// NopLogger 丢弃所有日志，容器默认使用它
type NopLogger struct{}

// Nop 返回不输出任何内容的 Logger
func Nop() Logger { return NopLogger{} }

func (NopLogger) Trace(string, ...Field)         {}
func (NopLogger) Debug(string, ...Field)         {}
func (NopLogger) Info(string, ...Field)          {}
func (NopLogger) Warn(string, ...Field)          {}
func (NopLogger) Error(string, ...Field)         {}
func (NopLogger) Fatal(string, ...Field)         {}
func (NopLogger) Log(LogLevel, string, ...Field) {}
func (n NopLogger) WithFields(...Field) Logger   { return n }
func (n NopLogger) WithCategory(string) Logger   { return n }
