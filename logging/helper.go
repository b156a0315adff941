package logging

// NewLogger 创建一个默认的控制台 Logger（便于测试和示例使用）
func NewLogger(category string) Logger {
	factory, err := NewLoggingBuilder().AddConsole().Build()
	if err != nil {
		return Nop()
	}
	return factory.CreateLogger(category)
}
