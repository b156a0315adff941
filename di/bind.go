package di

import (
	"fmt"
	"reflect"
)

// TypeOf 返回 T 的反射类型，接口类型同样适用。
//
//	di.TypeOf[io.Writer]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Bind 把 T 映射到解析器 r。
func Bind[T any](inj *Injector, r Resolver) error {
	return inj.Register(TypeOf[T](), r)
}

// Unbind 移除 T 在当前注入器上的映射。
func Unbind[T any](inj *Injector) error {
	return inj.Unregister(TypeOf[T]())
}

// BindValue 把 T 映射到固定值 v。
func BindValue[T any](inj *Injector, v T) error {
	return Bind[T](inj, NewValue(v))
}

// BindFactory 把 T 映射到 Impl 的工厂，每次解析都会创建新的 Impl。
func BindFactory[T, Impl any](inj *Injector) error {
	if err := assignable[T, Impl](); err != nil {
		return err
	}
	return Bind[T](inj, Factory[Impl]())
}

// BindSingleton 把 T 映射到 Impl 的单例。
func BindSingleton[T, Impl any](inj *Injector) error {
	if err := assignable[T, Impl](); err != nil {
		return err
	}
	return Bind[T](inj, Singleton[Impl]())
}

// BindProvider 把 T 映射到提供函数，第一次解析时调用并缓存结果。
func BindProvider[T any](inj *Injector, fn func() (T, error)) error {
	return Bind[T](inj, Provider(fn))
}

// Resolve 解析 T。没有解析器时返回零值和 nil 错误。
func Resolve[T any](inj *Injector) (T, error) {
	var zero T
	v, err := inj.Resolve(TypeOf[T]())
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: resolved %T, want %v", ErrTypeMismatch, v, TypeOf[T]())
	}
	return t, nil
}

// MustResolve 解析 T，出错或没有解析器时 panic。
func MustResolve[T any](inj *Injector) T {
	if !inj.Has(TypeOf[T]()) {
		panic(fmt.Errorf("%w for %v", ErrNotFound, TypeOf[T]()))
	}
	v, err := Resolve[T](inj)
	if err != nil {
		panic(err)
	}
	return v
}

// Build 创建 T 的实例并注入成员，不需要注册。
func Build[T any](inj *Injector) (T, error) {
	var zero T
	v, err := inj.Build(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func assignable[T, Impl any]() error {
	if !TypeOf[Impl]().AssignableTo(TypeOf[T]()) {
		return fmt.Errorf("%w: %v is not assignable to %v", ErrTypeMismatch, TypeOf[Impl](), TypeOf[T]())
	}
	return nil
}
