package injector

import (
	"context"

	"github.com/gocrud/injector/config"
	"github.com/gocrud/injector/cron"
	"github.com/gocrud/injector/database"
	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/etcd"
	"github.com/gocrud/injector/hosting"
	"github.com/gocrud/injector/mongodb"
	"github.com/gocrud/injector/redis"
	"github.com/gocrud/injector/web"
)

// WithOptions 把配置节 section 绑定为 T、*T、config.Option[T] 等形式
func WithOptions[T any](section string) hosting.Option {
	return func(rt *hosting.Runtime) error {
		cfg, err := di.Resolve[config.Configuration](rt.Injector)
		if err != nil {
			return err
		}
		return config.Provide[T](rt.Injector, cfg, section)
	}
}

// WithDatabase 启用数据库，*database.DatabaseFactory 和默认的 *gorm.DB 可以注入
func WithDatabase(opts ...database.BuilderOption) hosting.Option {
	return func(rt *hosting.Runtime) error {
		_, err := database.Register(rt.Injector, opts...)
		return err
	}
}

// WithRedis 启用 Redis 客户端
func WithRedis(opts ...redis.BuilderOption) hosting.Option {
	return func(rt *hosting.Runtime) error {
		_, err := redis.Register(rt.Injector, opts...)
		return err
	}
}

// WithMongo 启用 MongoDB 客户端
func WithMongo(opts ...mongodb.BuilderOption) hosting.Option {
	return func(rt *hosting.Runtime) error {
		_, err := mongodb.Register(rt.Injector, opts...)
		return err
	}
}

// WithEtcd 启用 etcd 客户端
func WithEtcd(opts ...etcd.BuilderOption) hosting.Option {
	return func(rt *hosting.Runtime) error {
		_, err := etcd.Register(rt.Injector, opts...)
		return err
	}
}

// WithCron 启用定时任务，应用启动时开始调度
func WithCron(opts ...cron.Option) hosting.Option {
	return func(rt *hosting.Runtime) error {
		s, err := cron.Register(rt.Injector, opts...)
		if err != nil {
			return err
		}
		rt.Lifecycle.OnStart(func(context.Context) error {
			s.Start()
			return nil
		})
		rt.Lifecycle.OnStop(s.Stop)
		return nil
	}
}

// WithWeb 启用 Web 主机，作为托管服务运行
func WithWeb(opts ...web.BuilderOption) hosting.Option {
	return func(rt *hosting.Runtime) error {
		host, err := web.Register(rt.Injector, opts...)
		if err != nil {
			return err
		}
		rt.Services.Add(host)
		return nil
	}
}
