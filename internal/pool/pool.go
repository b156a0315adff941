// Package pool 按名称懒加载的客户端集合，供各个客户端集成绑定到注入器。
package pool

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/logging"
)

// DefaultName 默认实例的名称
const DefaultName = "default"

// Pool 按名称懒加载的客户端集合，第一次 Get 时才真正连接
type Pool[C any] struct {
	kind    string
	names   []string
	open    func(name string) (C, error)
	close   func(name string, client C) error
	clients map[string]C
	logger  logging.Logger
	mu      sync.Mutex
}

// New 创建客户端集合；kind 用于错误信息和日志，names 是已配置的实例名称
func New[C any](kind string, names []string, open func(string) (C, error), close func(string, C) error, logger logging.Logger) *Pool[C] {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pool[C]{
		kind:    kind,
		names:   slices.Clone(names),
		open:    open,
		close:   close,
		clients: make(map[string]C),
		logger:  logger,
	}
}

// Names 返回已配置的实例名称
func (p *Pool[C]) Names() []string {
	return slices.Clone(p.names)
}

// Has 是否配置了名为 name 的实例
func (p *Pool[C]) Has(name string) bool {
	return slices.Contains(p.names, name)
}

// Default 返回默认实例的名称："default"，或者唯一配置的实例；没有时返回空字符串
func (p *Pool[C]) Default() string {
	if p.Has(DefaultName) {
		return DefaultName
	}
	if len(p.names) == 1 {
		return p.names[0]
	}
	return ""
}

// Get 返回名为 name 的客户端，必要时建立连接
func (p *Pool[C]) Get(name string) (C, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[name]; ok {
		return c, nil
	}
	var zero C
	if !p.Has(name) {
		return zero, fmt.Errorf("%s '%s' not configured", p.kind, name)
	}
	c, err := p.open(name)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s '%s': %w", p.kind, name, err)
	}
	p.clients[name] = c
	p.logger.Info("client opened",
		logging.Field{Key: "kind", Value: p.kind},
		logging.Field{Key: "name", Value: name})
	return c, nil
}

// Release 关闭名为 name 的客户端，之后再次 Get 会重新连接
func (p *Pool[C]) Release(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.release(name)
}

func (p *Pool[C]) release(name string) error {
	c, ok := p.clients[name]
	if !ok {
		return nil
	}
	delete(p.clients, name)
	p.logger.Info("client closed",
		logging.Field{Key: "kind", Value: p.kind},
		logging.Field{Key: "name", Value: name})
	if err := p.close(name, c); err != nil {
		return fmt.Errorf("failed to close %s '%s': %w", p.kind, name, err)
	}
	return nil
}

// Close 关闭所有已连接的客户端
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, name := range p.names {
		if err := p.release(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bind 把默认实例绑定为 C，把 factory 绑定为 F。
//
// C 是托管的动态单例：第一次解析时连接，注销时释放连接；
// 注销 F 时关闭全部客户端，factory 实现了 Close 时调用它，否则关闭 p。
// 没有默认实例时只绑定 F。
func Bind[C any, F any](inj *di.Injector, factory F, p *Pool[C]) error {
	closeAll := p.Close
	if c, ok := any(factory).(interface{ Close() error }); ok {
		closeAll = c.Close
	}
	if err := di.Bind[F](inj, di.NewManagedValue(factory,
		func(any) error { return closeAll() },
	)); err != nil {
		return err
	}
	return BindDefault(inj, p)
}

// BindDefault 把 p 的默认实例绑定为托管的 C，没有默认实例时不绑定
func BindDefault[C any](inj *di.Injector, p *Pool[C]) error {
	name := p.Default()
	if name == "" {
		return nil
	}
	return di.Bind[C](inj, di.NewManaged(
		func() (any, error) { return p.Get(name) },
		func(any) error { return p.Release(name) },
	))
}
