package di

import (
	"fmt"
	"reflect"

	"github.com/gocrud/injector/describe"
	"github.com/gocrud/injector/logging"
)

// Inject 向已有实例注入依赖。
//
// instance 应当是指向结构体的指针。注入从最顶层的基类型开始，逐层向下：
// 每一层中带有注入器标记的字段和属性，只有在注入器链上找到解析器时才会被写入，
// 延迟成员写入绑定到该解析器的 Lazy；标记的方法在字段和属性之后调用，参数由注入器解析。
// nil 或非结构体的实例不做任何事。
func (i *Injector) Inject(instance any) error {
	if instance == nil {
		return nil
	}
	return i.injectValue(reflect.ValueOf(instance))
}

// injectResult 向解析器产生的值注入依赖。结构体值不可寻址，
// 注入到它的副本中并返回副本；其他值原样返回。
func (i *Injector) injectResult(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		if err := i.Inject(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	if err := i.injectValue(ptr); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (i *Injector) injectValue(v reflect.Value) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	type level struct {
		desc  *describe.TypeDescription
		value reflect.Value
	}
	var levels []level
	d := i.registry.Describe(v.Type(), describe.KindAll)
	for d != nil {
		levels = append(levels, level{desc: d, value: v})
		base, ok := d.BaseValue(v)
		if !ok {
			break
		}
		d, v = d.Base(), base
	}

	for n := len(levels) - 1; n >= 0; n-- {
		if err := i.injectLevel(levels[n].desc, levels[n].value); err != nil {
			return err
		}
	}
	return nil
}

func (i *Injector) injectLevel(d *describe.TypeDescription, v reflect.Value) error {
	for _, m := range d.ByMarkerKind(i.marker, describe.KindField|describe.KindProperty) {
		r, ok := i.GetResolver(m.ProviderType(), true)
		if !ok {
			continue
		}
		var value reflect.Value
		if m.Deferred() {
			lazy, ok := i.bindLazy(m.Type(), m.ProviderType(), r)
			if !ok {
				continue
			}
			value = lazy
		} else {
			resolved, err := r.Resolve(i, m.ProviderType())
			if err != nil {
				return err
			}
			if resolved != nil {
				value = reflect.ValueOf(resolved)
			}
		}
		if err := m.SetValue(v, value); err != nil {
			return err
		}
	}
	for _, m := range d.ByMarkerKind(i.marker, describe.KindMethod) {
		if _, err := m.Invoke(v, i); err != nil {
			return err
		}
	}
	return nil
}

// ResolveArgument 为构造函数和方法参数提供值，实现 describe.ArgumentResolver。
// 找不到解析器时返回无效值，参数使用零值。
func (i *Injector) ResolveArgument(p describe.Param) (reflect.Value, error) {
	r, ok := i.GetResolver(p.ProviderType, true)
	if !ok {
		return reflect.Value{}, nil
	}
	if p.Deferred() {
		lazy, _ := i.bindLazy(p.Type, p.ProviderType, r)
		return lazy, nil
	}
	resolved, err := r.Resolve(i, p.ProviderType)
	if err != nil || resolved == nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(resolved), nil
}

// bindLazy 创建类型为 declared 的延迟提供者，取值时在 Serialize 中通过 r 解析 provider。
// declared 可以是 Lazy[T] 或 *Lazy[T]，其他 Deferred 实现无法绑定。
func (i *Injector) bindLazy(declared, provider reflect.Type, r Resolver) (reflect.Value, bool) {
	elem := declared
	if declared.Kind() == reflect.Pointer {
		elem = declared.Elem()
	}
	p := reflect.New(elem)
	b, ok := p.Interface().(lazyBinder)
	if !ok {
		i.logger.Warn("deferred type cannot be bound",
			logging.Field{Key: "type", Value: declared.String()},
		)
		return reflect.Value{}, false
	}
	b.bind(func() (v any, err error) {
		err = i.Serialize(func() error {
			v, err = r.Resolve(i, provider)
			return err
		})
		return v, err
	})
	if declared.Kind() == reflect.Pointer {
		return p, true
	}
	return p.Elem(), true
}

// Create 用 t 的构造函数创建实例，但不注入成员。
//
// 标记了注入器标记的构造函数优先，其次是参数最少的构造函数，
// 都没有时分配零值。t 可以是结构体类型或指向结构体的指针。
func (i *Injector) Create(t reflect.Type) (any, error) {
	return i.create(t, false)
}

// Build 创建 t 的实例并注入成员。
func (i *Injector) Build(t reflect.Type) (any, error) {
	return i.create(t, true)
}

func (i *Injector) create(t reflect.Type, inject bool) (any, error) {
	if t == nil || t.Kind() == reflect.Interface ||
		(t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Pointer) {
		return nil, fmt.Errorf("%w: cannot construct %v", ErrInvalidArgument, t)
	}
	elem := describe.Indirect(t)
	d := i.registry.Describe(elem, describe.KindAll)

	ctor := d.DefaultConstructor()
	if marked := d.ByMarkerKind(i.marker, describe.KindConstructor); len(marked) > 0 {
		ctor = marked[0]
	}

	var ptr reflect.Value
	if ctor != nil {
		out, err := ctor.Create(i)
		if err != nil {
			return nil, err
		}
		switch {
		case out.Kind() != reflect.Pointer:
			ptr = reflect.New(elem)
			ptr.Elem().Set(out)
		case out.IsNil():
			return nil, fmt.Errorf("di: constructor %s returned nil", ctor.Name())
		default:
			ptr = out
		}
	} else {
		ptr = reflect.New(elem)
	}

	if inject {
		if err := i.injectValue(ptr); err != nil {
			return nil, err
		}
	}
	if t.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

// Invoke 调用函数 fn，参数由注入器解析。
// fn 最后一个返回值为 error 且非 nil 时原样返回。
func (i *Injector) Invoke(fn any) ([]any, error) {
	call, err := i.Prepare(fn)
	if err != nil {
		return nil, err
	}
	return call()
}

// Prepare 立即解析 fn 的参数，返回之后调用 fn 的函数。
// 解析和调用可以分开进行，例如在锁内解析、在锁外调用。
func (i *Injector) Prepare(fn any) (func() ([]any, error), error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: Invoke expects a function, got %T", ErrInvalidArgument, fn)
	}
	ft := fv.Type()
	params := describe.FuncParams(ft)
	in := make([]reflect.Value, len(params))
	for n, p := range params {
		v, err := i.ResolveArgument(p)
		if err != nil {
			return nil, err
		}
		if !v.IsValid() {
			v = reflect.Zero(p.Type)
		}
		if !v.Type().AssignableTo(p.Type) {
			return nil, fmt.Errorf("%w: cannot pass %v as %v", ErrTypeMismatch, v.Type(), p.Type)
		}
		arg := reflect.New(p.Type).Elem()
		arg.Set(v)
		in[n] = arg
	}

	return func() ([]any, error) {
		var out []reflect.Value
		if ft.IsVariadic() {
			out = fv.CallSlice(in)
		} else {
			out = fv.Call(in)
		}

		results := make([]any, 0, len(out))
		for n, o := range out {
			if n == len(out)-1 && ft.Out(n) == errorType {
				if !o.IsNil() {
					return nil, o.Interface().(error)
				}
				break
			}
			results = append(results, o.Interface())
		}
		return results, nil
	}, nil
}

var errorType = reflect.TypeFor[error]()
