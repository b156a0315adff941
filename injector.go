// Package injector 运行时依赖注入容器和基于它的应用运行入口。
//
// 核心在 describe（类型描述缓存）和 di（注入器与解析器）两个包中；
// 本包把配置、客户端集成、Web 主机和定时任务组合成一个可运行的应用：
//
//	cfg, _ := config.NewConfigurationBuilder().AddYamlFile("app.yaml").Build()
//	err := injector.Run(cfg,
//		injector.WithDatabase(database.WithDatabase("default", sqlite.Open("app.db"))),
//		injector.WithWeb(web.WithPort(8080), web.WithControllers(di.TypeOf[*UserController]())),
//	)
package injector

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocrud/injector/config"
	"github.com/gocrud/injector/hosting"
)

// Run 启动应用程序，阻塞直到收到退出信号 (Ctrl+C, kill) 或运行时内部请求退出
func Run(cfg config.Configuration, opts ...hosting.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, cfg, opts...)
}

// RunContext 同 Run，ctx 取消时退出
func RunContext(ctx context.Context, cfg config.Configuration, opts ...hosting.Option) error {
	rt, err := NewRuntime(cfg, opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// NewRuntime 按配置创建根注入器并应用所有选项，不启动
func NewRuntime(cfg config.Configuration, opts ...hosting.Option) (*hosting.Runtime, error) {
	inj, err := config.NewInjector(cfg)
	if err != nil {
		return nil, err
	}
	rt := hosting.NewRuntime(inj)
	if err := rt.Apply(opts...); err != nil {
		return nil, err
	}
	return rt, nil
}
