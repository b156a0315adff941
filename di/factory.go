package di

import "reflect"

// FactoryResolver 每次解析都创建并注入一个新实例。
type FactoryResolver struct {
	concrete reflect.Type
}

// NewFactory 创建工厂解析器，concrete 是要创建的具体类型（结构体或其指针）。
func NewFactory(concrete reflect.Type) *FactoryResolver {
	return &FactoryResolver{concrete: concrete}
}

// Factory 创建类型 T 的工厂解析器。
func Factory[T any]() *FactoryResolver {
	return NewFactory(reflect.TypeFor[T]())
}

// Type 返回具体类型，注销后为 nil。
func (f *FactoryResolver) Type() reflect.Type { return f.concrete }

// Create 创建实例但不注入成员。
func (f *FactoryResolver) Create(inj *Injector) (any, error) {
	if f.concrete == nil {
		return nil, ErrResolverReleased
	}
	return inj.Create(f.concrete)
}

func (f *FactoryResolver) Resolve(inj *Injector, _ reflect.Type) (any, error) {
	if f.concrete == nil {
		return nil, ErrResolverReleased
	}
	return inj.Build(f.concrete)
}

// OnUnregister 释放具体类型的引用。
func (f *FactoryResolver) OnUnregister(*Injector, reflect.Type) error {
	f.concrete = nil
	return nil
}

// SingletonResolver 第一次解析时创建并注入实例，之后一直返回同一个实例。
type SingletonResolver struct {
	concrete reflect.Type
	instance any
	done     bool
}

// NewSingleton 创建单例解析器。
func NewSingleton(concrete reflect.Type) *SingletonResolver {
	return &SingletonResolver{concrete: concrete}
}

// Singleton 创建类型 T 的单例解析器。
func Singleton[T any]() *SingletonResolver {
	return NewSingleton(reflect.TypeFor[T]())
}

// Instance 返回已创建的实例。
func (s *SingletonResolver) Instance() (any, bool) { return s.instance, s.done }

func (s *SingletonResolver) Resolve(inj *Injector, _ reflect.Type) (any, error) {
	if s.done {
		return s.instance, nil
	}
	if s.concrete == nil {
		return nil, ErrResolverReleased
	}
	v, err := inj.Build(s.concrete)
	if err != nil {
		return nil, err
	}
	s.instance, s.done = v, true
	return v, nil
}

// OnUnregister 释放具体类型的引用，已创建的实例保留。
func (s *SingletonResolver) OnUnregister(*Injector, reflect.Type) error {
	s.concrete = nil
	return nil
}
