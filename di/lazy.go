package di

import (
	"fmt"
	"reflect"
)

// Lazy 延迟提供者。
//
// 声明为 Lazy[T] 的成员或参数向注入器请求 T 的解析器，注入时只绑定解析器，
// 每次 Get 才真正解析。常用于打破循环依赖，或推迟昂贵对象的创建。
type Lazy[T any] struct {
	resolve func() (any, error)
}

// lazyBinder 由 *Lazy[T] 实现，注入器通过它绑定解析函数。
type lazyBinder interface {
	bind(fn func() (any, error))
}

func (l *Lazy[T]) bind(fn func() (any, error)) { l.resolve = fn }

// ProviderType 返回 T，实现 describe.Deferred。
func (Lazy[T]) ProviderType() reflect.Type { return reflect.TypeFor[T]() }

// Bound 是否已经绑定到解析器。
func (l Lazy[T]) Bound() bool { return l.resolve != nil }

// Get 通过绑定的解析器解析 T，解析器每次调用都会被询问。
// 解析结果为 nil 时返回零值。
func (l Lazy[T]) Get() (T, error) {
	var zero T
	if l.resolve == nil {
		return zero, ErrLazyUnbound
	}
	v, err := l.resolve()
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: resolved %T, want %v", ErrTypeMismatch, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// MustGet 同 Get，出错时 panic。
func (l Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// LazyOf 创建绑定到固定函数的 Lazy，便于测试或手工组装。
func LazyOf[T any](fn func() (T, error)) Lazy[T] {
	return Lazy[T]{resolve: func() (any, error) { return fn() }}
}
