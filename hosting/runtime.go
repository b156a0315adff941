// Package hosting 应用运行时：按顺序执行配置选项、启动托管服务，
// 退出时停止服务并注销根注入器上的绑定，释放托管的资源。
package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/logging"
)

// Option 定义了修改 Runtime 状态的函数签名
type Option func(rt *Runtime) error

// Runtime 应用运行时，持有根注入器、生命周期钩子和托管服务
type Runtime struct {
	Injector  *di.Injector
	Lifecycle *Lifecycle
	Services  *HostedServiceManager

	// ShutdownTimeout 优雅关闭的超时时间，默认 5 秒
	ShutdownTimeout time.Duration

	logger     logging.Logger
	shutdownCh chan struct{}
	once       sync.Once
}

// NewRuntime 创建运行时
func NewRuntime(inj *di.Injector) *Runtime {
	logger := inj.Logger().WithCategory("hosting")
	return &Runtime{
		Injector:        inj,
		Lifecycle:       &Lifecycle{},
		Services:        NewHostedServiceManager(logger),
		ShutdownTimeout: 5 * time.Second,
		logger:          logger,
		shutdownCh:      make(chan struct{}),
	}
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown 请求应用退出，可以重复调用
func (rt *Runtime) Shutdown() {
	rt.once.Do(func() { close(rt.shutdownCh) })
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Start 执行启动钩子并启动托管服务；任何服务异常退出都会触发 Shutdown
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.Lifecycle.start(ctx); err != nil {
		return err
	}
	errCh := rt.Services.StartAll(context.WithoutCancel(ctx))
	go func() {
		select {
		case err := <-errCh:
			rt.logger.Error("hosted service failed, shutting down", logging.Field{Key: "error", Value: err.Error()})
			rt.Shutdown()
		case <-rt.shutdownCh:
		}
	}()
	return nil
}

// Stop 停止托管服务、倒序执行停止钩子，最后倒序注销根注入器上的绑定
func (rt *Runtime) Stop(ctx context.Context) error {
	rt.Shutdown()
	errs := []error{
		rt.Services.StopAll(ctx),
		rt.Lifecycle.stop(ctx),
		rt.release(),
	}
	return errors.Join(errs...)
}

// release 倒序注销根注入器上的绑定，托管解析器借此关闭连接
func (rt *Runtime) release() error {
	var types []reflect.Type
	for t := range rt.Injector.All() {
		if t == di.TypeOf[*di.Injector]() {
			continue
		}
		types = append(types, t)
	}
	slices.Reverse(types)

	var errs []error
	for _, t := range types {
		if err := rt.Injector.Unregister(t); err != nil {
			rt.logger.Error("failed to release binding",
				logging.Field{Key: "type", Value: t.String()},
				logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, fmt.Errorf("release %v: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// Run 启动运行时，阻塞直到 ctx 取消或 Shutdown 被调用，然后优雅关闭
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), rt.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, rt.Stop(stopCtx))
	}
	rt.logger.Info("application started")

	select {
	case <-ctx.Done():
	case <-rt.shutdownCh:
	}
	rt.logger.Info("application stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), rt.ShutdownTimeout)
	defer cancel()
	return rt.Stop(stopCtx)
}

// WithSetup 在注入器上执行初始化，例如注册服务
func WithSetup(fn func(inj *di.Injector) error) Option {
	return func(rt *Runtime) error {
		return fn(rt.Injector)
	}
}

// WithHostedService 注册托管服务 T，启动时从注入器解析或创建
func WithHostedService[T HostedService]() Option {
	return func(rt *Runtime) error {
		rt.Lifecycle.OnStart(func(context.Context) error {
			var (
				svc T
				err error
			)
			if rt.Injector.Has(di.TypeOf[T]()) {
				svc, err = di.Resolve[T](rt.Injector)
			} else {
				svc, err = di.Build[T](rt.Injector)
			}
			if err != nil {
				return fmt.Errorf("failed to resolve hosted service %v: %w", di.TypeOf[T](), err)
			}
			rt.Services.Add(svc)
			return nil
		})
		return nil
	}
}

// WithService 注册已有的托管服务实例
func WithService(svc HostedService) Option {
	return func(rt *Runtime) error {
		rt.Services.Add(svc)
		return nil
	}
}

// WithWorker 将一个阻塞的函数注册为后台服务，函数通过 ctx.Done() 判断退出
func WithWorker(fn func(ctx context.Context) error) Option {
	return WithService(ServiceFunc(fn))
}
