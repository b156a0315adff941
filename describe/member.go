package describe

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unsafe"
)

// MemberKind 成员种类，可按位组合成掩码。
type MemberKind uint8

const (
	KindField MemberKind = 1 << iota
	KindProperty
	KindMethod
	KindConstructor

	KindNone MemberKind = 0
	KindAll             = KindField | KindProperty | KindMethod | KindConstructor
)

// Has 判断掩码是否包含 o 中的任意种类。
func (k MemberKind) Has(o MemberKind) bool {
	return k&o != 0
}

// String 返回成员种类的字符串表示
func (k MemberKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindAll:
		return "all"
	}
	parts := make([]string, 0, 4)
	for _, kind := range []MemberKind{KindField, KindProperty, KindMethod, KindConstructor} {
		if k.Has(kind) {
			parts = append(parts, kind.String())
		}
	}
	return strings.Join(parts, "|")
}

// Param 方法或构造函数的参数描述。
type Param struct {
	Index        int
	Type         reflect.Type
	ProviderType reflect.Type
}

// Deferred 参数是否以延迟提供者的形式注入。
func (p Param) Deferred() bool {
	return p.Type != p.ProviderType
}

// ArgumentResolver 为方法和构造函数的参数提供实参。
type ArgumentResolver interface {
	ResolveArgument(p Param) (reflect.Value, error)
}

// Member 一个可注入或可构造成员的不可变描述。
type Member struct {
	kind         MemberKind
	owner        reflect.Type
	name         string
	typ          reflect.Type
	providerType reflect.Type
	marker       Marker
	markerType   reflect.Type
	tag          string
	params       []Param

	index  []int         // 字段
	fn     reflect.Value // 构造函数
	getter string        // 属性（可选）
}

func (m *Member) Kind() MemberKind           { return m.kind }
func (m *Member) Owner() reflect.Type        { return m.owner }
func (m *Member) Name() string               { return m.name }
func (m *Member) Type() reflect.Type         { return m.typ }
func (m *Member) ProviderType() reflect.Type { return m.providerType }
func (m *Member) Marker() Marker             { return m.marker }
func (m *Member) MarkerType() reflect.Type   { return m.markerType }

// Tag 返回标签值（标记的不透明负载）。
func (m *Member) Tag() string { return m.tag }

// Params 返回参数列表的副本。
func (m *Member) Params() []Param { return slices.Clone(m.params) }

// Deferred 成员是否以延迟提供者的形式注入。
func (m *Member) Deferred() bool { return m.typ != m.providerType }

func (m *Member) String() string {
	return fmt.Sprintf("%s %v.%s", m.kind, m.owner, m.name)
}

// withMarker 返回带有指定标记的副本，同一个成员可以出现在多个标记桶里。
func (m *Member) withMarker(marker Marker, markerType reflect.Type, tag string) *Member {
	c := *m
	c.marker = marker
	c.markerType = markerType
	c.tag = tag
	return &c
}

// SetValue 把 v 写入 target 上的字段或属性。
// target 可以是结构体值或指向结构体的指针；未导出字段通过 unsafe 写入，因此 target 必须可寻址。
// v 无效时写入零值。
func (m *Member) SetValue(target, v reflect.Value) error {
	switch m.kind {
	case KindField:
		s, err := m.structOf(target)
		if err != nil {
			return err
		}
		f, ok := settable(s.FieldByIndex(m.index))
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotAddressable, m)
		}
		return assign(f, v, m)
	case KindProperty:
		recv, err := m.receiverOf(target)
		if err != nil {
			return err
		}
		arg := reflect.New(m.typ).Elem()
		if err := assign(arg, v, m); err != nil {
			return err
		}
		return callResult(recv.MethodByName("Set"+m.name).Call([]reflect.Value{arg}))
	default:
		return fmt.Errorf("%w: SetValue on %s", ErrKindMismatch, m)
	}
}

// Value 读取 target 上字段或属性的当前值；没有 getter 的属性返回 false。
func (m *Member) Value(target reflect.Value) (reflect.Value, bool) {
	switch m.kind {
	case KindField:
		s, err := m.structOf(target)
		if err != nil {
			return reflect.Value{}, false
		}
		f, _ := settable(s.FieldByIndex(m.index))
		return f, true
	case KindProperty:
		if m.getter == "" {
			return reflect.Value{}, false
		}
		recv, err := m.receiverOf(target)
		if err != nil {
			return reflect.Value{}, false
		}
		return recv.MethodByName(m.getter).Call(nil)[0], true
	}
	return reflect.Value{}, false
}

// Invoke 在 target 上调用方法成员，参数由 args 提供。
// 方法最后一个返回值为非 nil error 时原样返回该错误。
func (m *Member) Invoke(target reflect.Value, args ArgumentResolver) ([]reflect.Value, error) {
	if m.kind != KindMethod {
		return nil, fmt.Errorf("%w: Invoke on %s", ErrKindMismatch, m)
	}
	recv, err := m.receiverOf(target)
	if err != nil {
		return nil, err
	}
	in, err := m.arguments(args)
	if err != nil {
		return nil, err
	}
	out := call(recv.MethodByName(m.name), in)
	if err := callResult(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create 调用构造函数成员，返回构造出的值（T 或 *T，取决于构造函数的声明）。
func (m *Member) Create(args ArgumentResolver) (reflect.Value, error) {
	if m.kind != KindConstructor {
		return reflect.Value{}, fmt.Errorf("%w: Create on %s", ErrKindMismatch, m)
	}
	in, err := m.arguments(args)
	if err != nil {
		return reflect.Value{}, err
	}
	out := call(m.fn, in)
	if err := callResult(out); err != nil {
		return reflect.Value{}, err
	}
	return out[0], nil
}

func (m *Member) arguments(args ArgumentResolver) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(m.params))
	for i, p := range m.params {
		v := reflect.Zero(p.Type)
		if args != nil {
			resolved, err := args.ResolveArgument(p)
			if err != nil {
				return nil, err
			}
			if resolved.IsValid() {
				v = resolved
			}
		}
		arg := reflect.New(p.Type).Elem()
		if err := assign(arg, v, m); err != nil {
			return nil, err
		}
		in[i] = arg
	}
	return in, nil
}

// structOf 把 target 规整为可寻址的 owner 结构体值。
func (m *Member) structOf(target reflect.Value) (reflect.Value, error) {
	for target.IsValid() && target.Kind() == reflect.Pointer {
		if target.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %v", ErrNotAddressable, target.Type())
		}
		target = target.Elem()
	}
	if !target.IsValid() || target.Type() != m.owner {
		return reflect.Value{}, fmt.Errorf("%w: target is not %v", ErrTypeMismatch, m.owner)
	}
	return target, nil
}

// receiverOf 返回 *owner，指针方法需要可寻址的结构体。
func (m *Member) receiverOf(target reflect.Value) (reflect.Value, error) {
	s, err := m.structOf(target)
	if err != nil {
		return reflect.Value{}, err
	}
	if !s.CanAddr() {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotAddressable, m)
	}
	s, _ = settable(s)
	return s.Addr(), nil
}

// settable 返回可写的 v，未导出字段通过 unsafe 重新定位。
func settable(v reflect.Value) (reflect.Value, bool) {
	if v.CanSet() {
		return v, true
	}
	if !v.CanAddr() {
		return v, false
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem(), true
}

func assign(dst, v reflect.Value, m *Member) error {
	if !v.IsValid() {
		dst.SetZero()
		return nil
	}
	if !v.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("%w: cannot assign %v to %v (%s)", ErrTypeMismatch, v.Type(), dst.Type(), m)
	}
	dst.Set(v)
	return nil
}

func call(fn reflect.Value, in []reflect.Value) []reflect.Value {
	if fn.Type().IsVariadic() {
		return fn.CallSlice(in)
	}
	return fn.Call(in)
}

// callResult 取出最后一个 error 返回值。
func callResult(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.Type() != errorIface || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}
