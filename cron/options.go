package cron

// options Cron 调度器配置选项
type options struct {
	// Location 时区设置，默认 UTC
	Location string
	// EnableSeconds 是否启用秒级精度（默认分钟级）
	EnableSeconds bool
	// EnableCronLogger 是否启用 cron 库的内部调度日志（默认 false）
	EnableCronLogger bool

	jobs []func(*Scheduler) error
}

// Option 用于配置 Scheduler
type Option func(*options)

// WithSeconds 启用秒级精度
func WithSeconds() Option {
	return func(o *options) { o.EnableSeconds = true }
}

// WithLocation 设置时区
func WithLocation(location string) Option {
	return func(o *options) { o.Location = location }
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() Option {
	return func(o *options) { o.EnableCronLogger = true }
}

// AddFunc 添加函数任务，参数在每次执行时从注入器解析
func AddFunc(spec, name string, handler any) Option {
	return func(o *options) {
		o.jobs = append(o.jobs, func(s *Scheduler) error {
			return s.AddFunc(spec, name, handler)
		})
	}
}

// AddJob 添加 T 类型的任务，每次执行时创建并注入新的 T
func AddJob[T Job](spec, name string) Option {
	return func(o *options) {
		o.jobs = append(o.jobs, func(s *Scheduler) error {
			return Schedule[T](s, spec, name)
		})
	}
}
