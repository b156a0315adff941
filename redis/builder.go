package redis

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/pool"
	"github.com/gocrud/injector/logging"
)

// Builder Redis 配置构建器
type Builder struct {
	configs map[string]RedisClientOptions
	order   []string
	errors  []error
}

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加客户端配置
func WithClient(name string, configure func(*RedisClientOptions)) BuilderOption {
	return func(b *Builder) { b.AddClient(name, configure) }
}

// WithDefault 添加默认客户端配置
func WithDefault(configure func(*RedisClientOptions)) BuilderOption {
	return WithClient(pool.DefaultName, configure)
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]RedisClientOptions),
	}
}

// AddClient 添加客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("redis client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
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

// Build 构建客户端工厂，客户端在第一次使用时才连接
func (b *Builder) Build(logger logging.Logger) (*RedisClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("redis configuration errors: %v", b.errors)
	}
	configs := b.configs
	open := func(name string) (*redis.Client, error) {
		opts := configs[name]
		return opts.open()
	}
	closeClient := func(_ string, c *redis.Client) error { return c.Close() }
	return &RedisClientFactory{Pool: pool.New("redis client", b.order, open, closeClient, logger)}, nil
}

// RedisClientFactory Redis 客户端工厂
type RedisClientFactory struct {
	*pool.Pool[*redis.Client]
}

// Register 构建 Redis 客户端工厂并绑定到注入器，默认客户端绑定为 *redis.Client
func Register(inj *di.Injector, opts ...BuilderOption) (*RedisClientFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}

	factory, err := builder.Build(inj.Logger().WithCategory("redis"))
	if err != nil {
		return nil, err
	}
	if err := pool.Bind[*redis.Client](inj, factory, factory.Pool); err != nil {
		return nil, err
	}
	return factory, nil
}
