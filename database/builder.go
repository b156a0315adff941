package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/pool"
	"github.com/gocrud/injector/logging"
)

// Builder 数据库配置构建器
type Builder struct {
	configs map[string]DatabaseOptions
	order   []string
	errors  []error
}

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*DatabaseOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *DatabaseOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]DatabaseOptions),
	}
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// Build 构建数据库工厂，连接在第一次使用时才建立
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %v", b.errors)
	}
	configs := b.configs
	open := func(name string) (*gorm.DB, error) {
		opts := configs[name]
		return opts.open()
	}
	return &DatabaseFactory{Pool: pool.New("database", b.order, open, closeDB, logger)}, nil
}

// DatabaseFactory 数据库客户端工厂，按名称获取 *gorm.DB
type DatabaseFactory struct {
	*pool.Pool[*gorm.DB]
}

// Register 构建数据库工厂并绑定到注入器：
// *DatabaseFactory 总是可用；配置了 "default"（或只配置了一个）数据库时同时绑定 *gorm.DB。
// 注销 *gorm.DB 关闭默认连接，注销 *DatabaseFactory 关闭全部连接。
func Register(inj *di.Injector, opts ...BuilderOption) (*DatabaseFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}

	factory, err := builder.Build(inj.Logger().WithCategory("database"))
	if err != nil {
		return nil, err
	}
	if err := pool.Bind[*gorm.DB](inj, factory, factory.Pool); err != nil {
		return nil, err
	}
	return factory, nil
}
