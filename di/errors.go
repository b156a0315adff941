package di

import (
	"errors"

	"github.com/gocrud/injector/describe"
)

var (
	// ErrNilResolver 注册了 nil 解析器。
	ErrNilResolver = errors.New("di: resolver is nil")
	// ErrInvalidArgument 参数不合法，例如用非标记类型创建注入器。
	ErrInvalidArgument = errors.New("di: invalid argument")
	// ErrNotFound 类型在注入器链上没有对应的解析器，只由 MustResolve 使用。
	ErrNotFound = errors.New("di: no resolver registered")
	// ErrResolverReleased 解析器已被注销并释放了工厂引用。
	ErrResolverReleased = errors.New("di: resolver released")
	// ErrLazyUnbound 未绑定的 Lazy 上调用了 Get。
	ErrLazyUnbound = errors.New("di: lazy provider is not bound")
	// ErrTypeMismatch 解析结果无法赋给目标类型。
	ErrTypeMismatch = describe.ErrTypeMismatch
)
