package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/pool"
	"github.com/gocrud/injector/logging"
)

// Builder MongoDB 配置构建器
type Builder struct {
	configs map[string]MongoOptions
	order   []string
	errors  []error
}

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*MongoOptions)
		if len(opts) > 0 {
			configure = func(o *MongoOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, uri, configure)
	}
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]MongoOptions),
	}
}

// Add 添加客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
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

// Build 构建客户端工厂
func (b *Builder) Build(logger logging.Logger) (*MongoFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %v", b.errors)
	}
	configs := b.configs
	open := func(name string) (*mgo.Client, error) {
		opts := configs[name]
		return opts.open()
	}
	openDriver := func(name string) (*mongo.Client, error) {
		opts := configs[name]
		return opts.openDriver()
	}
	return &MongoFactory{
		Pool:    pool.New("mongo client", b.order, open, disconnect[*mgo.Client], logger),
		drivers: pool.New("mongo driver client", b.order, openDriver, disconnect[*mongo.Client], logger),
		configs: configs,
	}, nil
}

func disconnect[C interface{ Disconnect(context.Context) error }](_ string, client C) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// MongoFactory MongoDB 客户端工厂。
// 每个配置同时提供 *mgo.Client 和驱动的 *mongo.Client，二者都在第一次使用时创建。
type MongoFactory struct {
	*pool.Pool[*mgo.Client]
	drivers *pool.Pool[*mongo.Client]
	configs map[string]MongoOptions
}

// Driver 返回名为 name 的驱动客户端
func (f *MongoFactory) Driver(name string) (*mongo.Client, error) {
	return f.drivers.Get(name)
}

// Database 返回名为 name 的客户端上配置的默认数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	opts, ok := f.configs[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not configured", name)
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("mongo client '%s' has no database configured", name)
	}
	client, err := f.Driver(name)
	if err != nil {
		return nil, err
	}
	return client.Database(opts.Database), nil
}

// Close 断开所有已创建的客户端
func (f *MongoFactory) Close() error {
	return errors.Join(f.Pool.Close(), f.drivers.Close())
}

// Register 构建 MongoDB 客户端工厂并绑定到注入器。
// 默认配置绑定为 *mgo.Client 和 *mongo.Client；配置了数据库时同时绑定 *mongo.Database。
func Register(inj *di.Injector, opts ...BuilderOption) (*MongoFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}

	factory, err := builder.Build(inj.Logger().WithCategory("mongodb"))
	if err != nil {
		return nil, err
	}
	if err := pool.Bind[*mgo.Client](inj, factory, factory.Pool); err != nil {
		return nil, err
	}
	if err := pool.BindDefault(inj, factory.drivers); err != nil {
		return nil, err
	}

	name := factory.Default()
	if name != "" && factory.configs[name].Database != "" {
		err := di.BindProvider(inj, func() (*mongo.Database, error) {
			return factory.Database(name)
		})
		if err != nil {
			return nil, err
		}
	}
	return factory, nil
}
