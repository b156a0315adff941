package hosting

import (
	"context"
	"errors"
)

// Lifecycle 管理应用程序的启动和停止钩子
type Lifecycle struct {
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// OnStart 注册启动钩子
func (l *Lifecycle) OnStart(fn func(context.Context) error) {
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子
func (l *Lifecycle) OnStop(fn func(context.Context) error) {
	l.onStop = append(l.onStop, fn)
}

// start 按注册顺序执行启动钩子，遇到错误立即返回
func (l *Lifecycle) start(ctx context.Context) error {
	for _, fn := range l.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// stop 倒序执行停止钩子，出错时继续停止其余部分
func (l *Lifecycle) stop(ctx context.Context) error {
	var errs []error
	for i := len(l.onStop) - 1; i >= 0; i-- {
		if err := l.onStop[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
