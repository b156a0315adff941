package di

import "reflect"

// DynamicSingletonResolver 第一次解析时调用提供函数，注入返回的实例后缓存它。
// 提供函数返回结构体值时缓存的是注入后的副本。
//
// 提供函数返回错误时不缓存，下一次解析会再次调用。
type DynamicSingletonResolver struct {
	provider     func() (any, error)
	typeProvider func(reflect.Type) (any, error)
	release      func(any) error
	instance     any
	done         bool
}

// NewDynamicSingleton 用无参提供函数创建解析器。
func NewDynamicSingleton(provider func() (any, error)) *DynamicSingletonResolver {
	return &DynamicSingletonResolver{provider: provider}
}

// NewDynamicSingletonFor 用接收请求类型的提供函数创建解析器。
func NewDynamicSingletonFor(provider func(reflect.Type) (any, error)) *DynamicSingletonResolver {
	return &DynamicSingletonResolver{typeProvider: provider}
}

// NewManaged 同 NewDynamicSingleton，注销时额外用 release 释放已创建的实例，
// 适合数据库连接、客户端这类需要关闭的资源。
func NewManaged(provider func() (any, error), release func(any) error) *DynamicSingletonResolver {
	return &DynamicSingletonResolver{provider: provider, release: release}
}

// NewManagedValue 创建总是返回 v 的解析器，注销时用 release 释放 v。v 不会被注入。
func NewManagedValue(v any, release func(any) error) *DynamicSingletonResolver {
	return &DynamicSingletonResolver{release: release, instance: v, done: true}
}

// Provider 用类型化的提供函数创建解析器。
func Provider[T any](fn func() (T, error)) *DynamicSingletonResolver {
	return NewDynamicSingleton(func() (any, error) { return fn() })
}

// Instance 返回已创建的实例。
func (d *DynamicSingletonResolver) Instance() (any, bool) { return d.instance, d.done }

func (d *DynamicSingletonResolver) Resolve(inj *Injector, t reflect.Type) (any, error) {
	if d.done {
		return d.instance, nil
	}
	var (
		v   any
		err error
	)
	switch {
	case d.provider != nil:
		v, err = d.provider()
	case d.typeProvider != nil:
		v, err = d.typeProvider(t)
	default:
		return nil, ErrResolverReleased
	}
	if err != nil {
		return nil, err
	}
	if v != nil {
		if v, err = inj.injectResult(v); err != nil {
			return nil, err
		}
	}
	d.instance, d.done = v, true
	return v, nil
}

// OnUnregister 释放提供函数；托管的实例会被关闭并清空。
func (d *DynamicSingletonResolver) OnUnregister(*Injector, reflect.Type) error {
	d.provider, d.typeProvider = nil, nil
	if d.release == nil || !d.done {
		return nil
	}
	release, instance := d.release, d.instance
	d.release, d.instance, d.done = nil, nil, false
	if instance == nil {
		return nil
	}
	return release(instance)
}

// ValueResolver 总是返回同一个已有的值。
type ValueResolver struct {
	value    any
	inject   bool
	injected bool
}

// NewValue 创建返回 v 的解析器，不做注入。
func NewValue(v any) *ValueResolver {
	return &ValueResolver{value: v}
}

// NewInjectedValue 创建返回 v 的解析器，第一次解析时向 v 注入依赖。
// v 是结构体值时注入的是它的副本，之后一直返回这个副本。
func NewInjectedValue(v any) *ValueResolver {
	return &ValueResolver{value: v, inject: true}
}

func (r *ValueResolver) Value() any { return r.value }

func (r *ValueResolver) Resolve(inj *Injector, _ reflect.Type) (any, error) {
	if r.inject && !r.injected {
		r.injected = true
		v, err := inj.injectResult(r.value)
		if err != nil {
			r.injected = false
			return nil, err
		}
		r.value = v
	}
	return r.value, nil
}
