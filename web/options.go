package web

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/injector/di"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithMiddleware 添加全局中间件
func WithMiddleware(middleware ...gin.HandlerFunc) BuilderOption {
	return func(b *Builder) {
		b.Use(middleware...)
	}
}

// WithRoutes 直接配置路由
func WithRoutes(configure func(b *Builder)) BuilderOption {
	return configure
}

// Register 构建 Web 主机并绑定到注入器：*Host 和 *gin.Engine。
// 注销 *Host 时关闭服务。
func Register(inj *di.Injector, opts ...BuilderOption) (*Host, error) {
	builder := NewBuilder(inj)
	for _, opt := range opts {
		opt(builder)
	}

	host, err := builder.Build()
	if err != nil {
		return nil, err
	}

	if err := di.BindValue(inj, builder.Engine()); err != nil {
		return nil, err
	}
	err = di.Bind[*Host](inj, di.NewManagedValue(host, func(any) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return host.Stop(ctx)
	}))
	if err != nil {
		return nil, err
	}
	return host, nil
}
