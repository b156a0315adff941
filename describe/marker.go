package describe

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidArgument 参数不合法，例如把未实现 Marker 的类型映射为标记。
	ErrInvalidArgument = errors.New("describe: invalid argument")
	// ErrTypeMismatch 值不能赋给成员或参数的声明类型。
	ErrTypeMismatch = errors.New("describe: type mismatch")
	// ErrNotAddressable 目标不可寻址，无法写入字段或调用指针方法。
	ErrNotAddressable = errors.New("describe: target is not addressable")
	// ErrKindMismatch 在不支持的成员种类上执行了操作。
	ErrKindMismatch = errors.New("describe: operation not supported by member kind")
)

// Marker 注入标记的基础接口。
//
// 标记通过结构体标签附着在成员上，TagKey 返回标签的键名。
// 标记类型必须是具体类型（结构体或其指针），实例本身只作为查找键使用，
// 标签值作为不透明的负载原样保存在 Member 上。
type Marker interface {
	TagKey() string
}

// TagDecoder 可选接口：标记类型可以从标签值构造带负载的实例。
type TagDecoder interface {
	DecodeTag(value string) (Marker, error)
}

// Deferred 延迟提供者接口。
// 声明类型实现 Deferred 的成员或参数，向容器请求的是 ProviderType 而不是声明类型本身。
type Deferred interface {
	ProviderType() reflect.Type
}

var (
	markerIface     = reflect.TypeFor[Marker]()
	decoderIface    = reflect.TypeFor[TagDecoder]()
	deferredIface   = reflect.TypeFor[Deferred]()
	ctorSourceIface = reflect.TypeFor[ConstructorSource]()
	errorIface      = reflect.TypeFor[error]()
)

// IsMarker 判断 t 是否可以作为标记类型。
func IsMarker(t reflect.Type) bool {
	return t != nil && t.Kind() != reflect.Interface && t.Implements(markerIface)
}

// Indirect 去掉所有指针层，返回描述信息使用的键类型。
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// ProviderTypeOf 返回声明类型 t 对应的提供者类型。
func ProviderTypeOf(t reflect.Type) reflect.Type {
	if t == nil || t.Kind() == reflect.Interface || !t.Implements(deferredIface) {
		return t
	}
	if pt := instance(t).(Deferred).ProviderType(); pt != nil {
		return pt
	}
	return t
}

// instance 返回 t 的一个可调用方法的实例，指针类型会分配新对象。
func instance(t reflect.Type) any {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.Zero(t).Interface()
}

func tagKeyOf(t reflect.Type) (string, error) {
	if !IsMarker(t) {
		return "", fmt.Errorf("%w: %v does not implement describe.Marker", ErrInvalidArgument, t)
	}
	key := instance(t).(Marker).TagKey()
	if key == "" {
		return "", fmt.Errorf("%w: marker %v has an empty tag key", ErrInvalidArgument, t)
	}
	return key, nil
}

func decodeMarker(t reflect.Type, value string) (Marker, error) {
	m := instance(t).(Marker)
	if t.Implements(decoderIface) {
		return m.(TagDecoder).DecodeTag(value)
	}
	return m, nil
}
