package describe

import "reflect"

// Constructor 一个构造函数声明。
type Constructor struct {
	fn      any
	markers []Marker
}

// Ctor 声明构造函数 fn，markers 是附着在该构造函数上的标记。
//
// fn 必须返回 T 或 *T，可以额外返回 error；参数由容器解析。
//
//	func (*UserService) Constructors() []describe.Constructor {
//		return []describe.Constructor{
//			describe.Ctor(NewUserService, di.Inject{}),
//			describe.Ctor(NewUserServiceWithDefaults),
//		}
//	}
func Ctor(fn any, markers ...Marker) Constructor {
	return Constructor{fn: fn, markers: markers}
}

// ConstructorSource 由类型实现，按声明顺序列出自己的构造函数。
//
// 嵌入基类型时 Constructors 会被提升，返回类型不是当前类型的构造函数会被忽略，
// 因此每个类型只会看到自己声明的构造函数。
type ConstructorSource interface {
	Constructors() []Constructor
}

// newConstructor 校验构造函数签名并生成 Member；签名不属于 owner 时返回 false。
func newConstructor(owner reflect.Type, c Constructor) (*Member, bool) {
	if c.fn == nil {
		return nil, false
	}
	fn := reflect.ValueOf(c.fn)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return nil, false
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorIface {
			return nil, false
		}
	default:
		return nil, false
	}
	out := ft.Out(0)
	if out != owner && out != reflect.PointerTo(owner) {
		return nil, false
	}
	return &Member{
		kind:         KindConstructor,
		owner:        owner,
		name:         ft.String(),
		typ:          out,
		providerType: out,
		params:       paramsOf(ft, 0),
		fn:           fn,
	}, true
}

// FuncParams 返回函数类型 ft 的参数描述。
func FuncParams(ft reflect.Type) []Param {
	return paramsOf(ft, 0)
}

// paramsOf 从第 skip 个入参开始生成参数描述（方法需要跳过接收者）。
func paramsOf(ft reflect.Type, skip int) []Param {
	params := make([]Param, 0, ft.NumIn()-skip)
	for i := skip; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		params = append(params, Param{
			Index:        i - skip,
			Type:         pt,
			ProviderType: ProviderTypeOf(pt),
		})
	}
	return params
}
