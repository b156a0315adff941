package logging

import (
	"encoding/json"
	"fmt"
)

// JsonFormatter JSON 格式化器，每条日志输出一个 JSON 对象
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format 格式化日志
func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]any, 5)

	data["time"] = entry.Time.Format(f.TimestampFormat)
	data["level"] = entry.Level.String()
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	data["msg"] = entry.Message

	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = jsonValue(field.Value)
		}
		data["fields"] = fields
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// jsonValue error 和 reflect.Type 之类的值序列化后没有信息，统一转成字符串
func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int64, uint64, float64:
		return val
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
