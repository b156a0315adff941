package etcd

import (
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/injector/config"
	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/pool"
	"github.com/gocrud/injector/logging"
)

// Builder Etcd 客户端配置构建器
type Builder struct {
	configs map[string]EtcdClientOptions
	order   []string
	errors  []error
}

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*Builder)

// WithClient 添加客户端配置
func WithClient(name string, configure func(*EtcdClientOptions)) BuilderOption {
	return func(b *Builder) { b.AddClient(name, configure) }
}

// NewBuilder 创建 Etcd 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]EtcdClientOptions),
	}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// Build 构建 Etcd 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd configuration errors: %v", b.errors)
	}
	configs := b.configs
	open := func(name string) (*clientv3.Client, error) {
		opts := configs[name]
		return opts.open()
	}
	closeClient := func(_ string, c *clientv3.Client) error { return c.Close() }
	return &EtcdClientFactory{Pool: pool.New("etcd client", b.order, open, closeClient, logger)}, nil
}

// EtcdClientFactory etcd 客户端工厂
type EtcdClientFactory struct {
	*pool.Pool[*clientv3.Client]
}

// Each 遍历所有客户端，必要时建立连接
func (f *EtcdClientFactory) Each(fn func(name string, client *clientv3.Client)) error {
	for _, name := range f.Names() {
		client, err := f.Get(name)
		if err != nil {
			return err
		}
		fn(name, client)
	}
	return nil
}

// ConfigSource 返回从名为 name 的客户端读取 prefix 下键值的配置源
func (f *EtcdClientFactory) ConfigSource(name, prefix string) (*config.EtcdSource, error) {
	client, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	return config.NewEtcdSource(client, prefix), nil
}

// Register 构建 Etcd 客户端工厂并绑定到注入器，默认客户端绑定为 *clientv3.Client
func Register(inj *di.Injector, opts ...BuilderOption) (*EtcdClientFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}

	factory, err := builder.Build(inj.Logger().WithCategory("etcd"))
	if err != nil {
		return nil, err
	}
	if err := pool.Bind[*clientv3.Client](inj, factory, factory.Pool); err != nil {
		return nil, err
	}
	return factory, nil
}
