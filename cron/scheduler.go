// Package cron 定时任务调度，每次执行都在新的子注入器中解析任务的依赖。
package cron

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/internal/scope"
	"github.com/gocrud/injector/logging"
)

// Job 定时任务。实现类型可以声明 inject 成员，每次执行前注入。
type Job interface {
	Run(ctx context.Context) error
}

// JobInfo 当前执行的任务信息，在任务的子注入器中可以注入
type JobInfo struct {
	Name    string
	Spec    string
	Started time.Time
}

type entry struct {
	id   cron.EntryID
	spec string
	run  func() error
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron   *cron.Cron
	guard  *scope.Guard
	logger logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	jobs   map[string]*entry
}

// New 创建调度器，任务的依赖从 inj 解析
func New(inj *di.Injector, opts ...Option) (*Scheduler, error) {
	opt := &options{Location: "UTC"}
	for _, o := range opts {
		o(opt)
	}

	loc, err := time.LoadLocation(opt.Location)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid location %q: %w", opt.Location, err)
	}

	logger := inj.Logger().WithCategory("cron")
	cronOpts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(newCronLogger(logger))),
	}
	if opt.EnableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	if opt.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cronOpts...),
		guard:  scope.NewGuard(inj),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
	for _, add := range opt.jobs {
		if err := add(s); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

// AddFunc 添加函数任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "@every 1h"
// handler: 任意函数，参数在锁内从任务的子注入器解析，函数本身在锁外执行；返回的 error 会被记录
func (s *Scheduler) AddFunc(spec, name string, handler any) error {
	if reflect.TypeOf(handler) == nil || reflect.TypeOf(handler).Kind() != reflect.Func {
		return fmt.Errorf("cron: handler for job '%s' must be a function, got %T", name, handler)
	}
	return s.add(spec, name, func(_ context.Context, child *di.Injector) error {
		_, err := scope.Invoke(s.guard, child, handler)
		return err
	})
}

// Schedule 添加 T 类型的任务，每次执行时在子注入器中创建 T 并调用 Run
func Schedule[T Job](s *Scheduler, spec, name string) error {
	return s.add(spec, name, func(ctx context.Context, child *di.Injector) error {
		job, err := scope.Build[T](s.guard, child)
		if err != nil {
			return err
		}
		return job.Run(ctx)
	})
}

func (s *Scheduler) add(spec, name string, fn func(context.Context, *di.Injector) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: job '%s' already registered", name)
	}
	e := &entry{spec: spec}
	e.run = func() error { return s.execute(name, spec, fn) }

	id, err := s.cron.AddFunc(spec, func() { _ = e.run() })
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}
	e.id = id
	s.jobs[name] = e
	s.logger.Info("cron job registered",
		logging.Field{Key: "job", Value: name},
		logging.Field{Key: "spec", Value: spec})
	return nil
}

// execute 为一次执行创建子注入器，绑定 JobInfo、context.Context 和带任务名的 Logger
func (s *Scheduler) execute(name, spec string, fn func(context.Context, *di.Injector) error) (err error) {
	info := JobInfo{Name: name, Spec: spec, Started: time.Now()}
	logger := s.logger.WithFields(logging.Field{Key: "job", Value: name})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cron: job '%s' panicked: %v", name, r)
			logger.Error("cron job panicked", logging.Field{Key: "panic", Value: r})
		}
	}()

	child, err := s.guard.Child(func(c *di.Injector) error {
		return binds(
			di.BindValue(c, info),
			di.BindValue(c, s.ctx),
			di.BindValue(c, logger),
		)
	})
	if err != nil {
		logger.Error("failed to create job scope", logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	logger.Debug("cron job started")
	if err = fn(s.ctx, child); err != nil {
		logger.Error("cron job failed",
			logging.Field{Key: "error", Value: err.Error()},
			logging.Field{Key: "elapsed", Value: time.Since(info.Started).String()})
		return err
	}
	logger.Debug("cron job completed", logging.Field{Key: "elapsed", Value: time.Since(info.Started).String()})
	return nil
}

func binds(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Remove 移除定时任务
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return false
	}
	s.cron.Remove(e.id)
	delete(s.jobs, name)
	s.logger.Info("cron job removed", logging.Field{Key: "job", Value: name})
	return true
}

// Names 返回已注册的任务名称
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Next 返回任务下一次执行的时间，调度器未启动时为零值
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(e.id).Next, true
}

// Trigger 立即同步执行一次任务，不影响调度
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	e, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("cron: job '%s' not found", name)
	}
	return e.run()
}

// Start 在后台启动调度
func (s *Scheduler) Start() {
	s.logger.Info("cron scheduler starting", logging.Field{Key: "jobs", Value: len(s.Names())})
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务完成；ctx 超时后取消任务的 context
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("cron scheduler stopping")
	stopCtx := s.cron.Stop()
	defer s.cancel()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn("cron scheduler stop timeout, cancelling running jobs")
		return ctx.Err()
	}
}

// Register 创建调度器并绑定为 *Scheduler；注销时停止调度
func Register(inj *di.Injector, opts ...Option) (*Scheduler, error) {
	s, err := New(inj, opts...)
	if err != nil {
		return nil, err
	}
	err = di.Bind[*Scheduler](inj, di.NewManagedValue(s,
		func(any) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return s.Stop(ctx)
		},
	))
	if err != nil {
		return nil, err
	}
	return s, nil
}
