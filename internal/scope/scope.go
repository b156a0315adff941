// Package scope 为并发的调用方（定时任务、HTTP 请求）创建子注入器。
//
// 注入器和描述缓存都不加锁，同一个根注入器下的所有解析都经过 Guard 串行化，
// 包括之后通过 di.Lazy 进行的延迟解析。解析得到的实例在锁外使用。
//
// 在锁内（构造函数、注入方法、提供函数中）调用根注入器上绑定的 Lazy 会死锁；
// 子作用域上绑定的 Lazy 在同一作用域的锁内可以直接调用。
package scope

import (
	"sync"
	"sync/atomic"

	"github.com/gocrud/injector/di"
)

// Guard 串行化对同一棵注入器树的访问，每个根注入器只有一个 Guard
type Guard struct {
	root *di.Injector
	mu   sync.Mutex
}

// NewGuard 返回 root 的访问守卫。
//
// 第一次调用时创建守卫，把它绑定为 root 上的 *Guard，并把 root 的延迟解析纳入锁中；
// 之后的调用返回同一个守卫。应在 root 被并发使用之前调用。
func NewGuard(root *di.Injector) *Guard {
	if r, ok := root.GetResolver(di.TypeOf[*Guard](), false); ok {
		if vr, ok := r.(*di.ValueResolver); ok {
			if g, ok := vr.Value().(*Guard); ok {
				return g
			}
		}
	}
	g := &Guard{root: root}
	root.SetSerializer(g.Do)
	_ = di.BindValue(root, g)
	return g
}

// Root 返回根注入器
func (g *Guard) Root() *di.Injector { return g.root }

// section 一个子作用域的临界区。同一作用域内重入时不再加锁。
type section struct {
	g    *Guard
	held atomic.Bool
}

func (s *section) run(fn func() error) error {
	if s.held.Load() {
		return fn()
	}
	s.g.mu.Lock()
	s.held.Store(true)
	defer func() {
		s.held.Store(false)
		s.g.mu.Unlock()
	}()
	return fn()
}

// Child 创建子注入器并在锁内执行 setup，setup 通常绑定本次作用域的值。
// 子注入器上的延迟解析同样经过锁。
func (g *Guard) Child(setup func(child *di.Injector) error) (*di.Injector, error) {
	s := &section{g: g}
	child := g.root.NewChild(di.WithSerializer(s.run))
	if setup == nil {
		return child, nil
	}
	if err := s.run(func() error { return setup(child) }); err != nil {
		return nil, err
	}
	return child, nil
}

// Do 在锁内执行 fn
func (g *Guard) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}

// enter 在锁内执行 fn：子作用域使用自己的临界区，其他注入器使用 Do
func (g *Guard) enter(inj *di.Injector, fn func() error) error {
	if inj == nil || inj == g.root {
		return g.Do(fn)
	}
	return inj.Serialize(fn)
}

// Build 在锁内通过 inj 创建并注入 T
func Build[T any](g *Guard, inj *di.Injector) (T, error) {
	var v T
	err := g.enter(inj, func() error {
		var err error
		v, err = di.Build[T](inj)
		return err
	})
	return v, err
}

// Resolve 在锁内通过 inj 解析 T
func Resolve[T any](g *Guard, inj *di.Injector) (T, error) {
	var v T
	err := g.enter(inj, func() error {
		var err error
		v, err = di.Resolve[T](inj)
		return err
	})
	return v, err
}

// Invoke 在锁内解析 fn 的参数，在锁外调用 fn
func Invoke(g *Guard, inj *di.Injector, fn any) ([]any, error) {
	var call func() ([]any, error)
	err := g.enter(inj, func() error {
		var err error
		call, err = inj.Prepare(fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return call()
}
