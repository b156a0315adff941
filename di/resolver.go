package di

import "reflect"

// Resolver 为某个类型提供实例。
//
// inj 是发起请求的注入器，t 是请求的类型。返回 nil, nil 表示没有可用的值。
type Resolver interface {
	Resolve(inj *Injector, t reflect.Type) (any, error)
}

// RegisterHook 可选接口，解析器注册到注入器后调用。
type RegisterHook interface {
	OnRegister(inj *Injector, t reflect.Type) error
}

// UnregisterHook 可选接口，解析器从注入器移除前调用。
type UnregisterHook interface {
	OnUnregister(inj *Injector, t reflect.Type) error
}

// ResolverFunc 函数形式的解析器，每次请求都会调用。
type ResolverFunc func(inj *Injector, t reflect.Type) (any, error)

func (f ResolverFunc) Resolve(inj *Injector, t reflect.Type) (any, error) {
	return f(inj, t)
}

// sameResolver 判断两个解析器是否为同一个实例，只有指针可以比较身份。
func sameResolver(a, b Resolver) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return false
	}
	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}
