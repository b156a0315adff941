package describe

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gocrud/injector/logging"
)

// TypeDescription 一个类型的注入描述缓存。
//
// 只描述类型自身声明的成员；嵌入的基类型由 Base 链接到它自己的描述上。
// 解析是惰性且幂等的：第一次查询成员时自动解析，之后不再重复。
//
// 声明方式：
//
//	type UserService struct {
//		Base // 第一个嵌入的结构体是基类型
//
//		_ struct{} `inject:""`              // 类型级标记
//		_ struct{} `inject:"method=Init"`   // 标记方法（*UserService 上导出的方法）
//		_ struct{} `inject:"property=Name"` // 标记属性（SetName / Name）
//
//		Repo  *Repository     `inject:""` // 标记字段
//		cache di.Lazy[*Cache] `inject:""` // 延迟注入，向容器请求 *Cache
//	}
type TypeDescription struct {
	typ      reflect.Type
	registry *Registry
	parsed   bool
	kind     MemberKind

	base      *TypeDescription
	baseIndex []int
	basePtr   bool

	members     []*Member
	byMarker    map[reflect.Type][]*Member
	markerTypes []reflect.Type
	typeMarkers []Marker

	ctors       []*Member
	defaultCtor *Member
}

// New 创建一个尚未绑定注册表的描述，之后通过 Registry.Add 或 Registry.Parse 绑定。
func New(t reflect.Type) (*TypeDescription, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidArgument)
	}
	return newDescription(nil, Indirect(t)), nil
}

func newDescription(r *Registry, t reflect.Type) *TypeDescription {
	return &TypeDescription{
		typ:      t,
		registry: r,
		byMarker: make(map[reflect.Type][]*Member),
	}
}

// Type 返回被描述的类型（已去掉指针）。
func (d *TypeDescription) Type() reflect.Type { return d.typ }

// Parsed 是否已经解析。
func (d *TypeDescription) Parsed() bool { return d.parsed }

// Kind 返回解析时使用的成员种类掩码。
func (d *TypeDescription) Kind() MemberKind { return d.kind }

// Registry 返回拥有该描述的注册表。
func (d *TypeDescription) Registry() *Registry { return d.registry }

// Parse 解析并把发现的标记合并进所属注册表的索引。
// 只有真正执行了解析的那一次调用返回 true；未绑定注册表时不解析。
func (d *TypeDescription) Parse(kind MemberKind) bool {
	if !d.parse(kind) {
		return false
	}
	d.registry.index(d)
	return true
}

func (d *TypeDescription) ensureParsed() {
	if !d.parsed {
		d.Parse(KindAll)
	}
}

// Base 返回基类型的描述，没有基类型时返回 nil。
func (d *TypeDescription) Base() *TypeDescription {
	d.ensureParsed()
	return d.base
}

// BaseValue 从 d 类型的结构体值 v 中取出基类型部分。
// 基类型以 nil 指针嵌入时返回 false。
func (d *TypeDescription) BaseValue(v reflect.Value) (reflect.Value, bool) {
	d.ensureParsed()
	if d.base == nil {
		return reflect.Value{}, false
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Type() != d.typ {
		return reflect.Value{}, false
	}
	f, _ := settable(v.FieldByIndex(d.baseIndex))
	if d.basePtr {
		if f.IsNil() {
			return reflect.Value{}, false
		}
		return f.Elem(), true
	}
	return f, true
}

// ByMarker 返回带有标记 markerType 的成员。
func (d *TypeDescription) ByMarker(markerType reflect.Type) []*Member {
	d.ensureParsed()
	return slices.Clone(d.byMarker[markerType])
}

// ByMarkerKind 返回带有标记 markerType 且种类属于 kind 的成员。
func (d *TypeDescription) ByMarkerKind(markerType reflect.Type, kind MemberKind) []*Member {
	d.ensureParsed()
	return filterKind(d.byMarker[markerType], kind)
}

// HasMarker 判断类型或其成员上是否发现过该标记。
func (d *TypeDescription) HasMarker(markerType reflect.Type) bool {
	d.ensureParsed()
	return slices.Contains(d.markerTypes, markerType)
}

// MarkerTypes 返回解析时发现的所有标记类型，按发现顺序。
func (d *TypeDescription) MarkerTypes() []reflect.Type {
	d.ensureParsed()
	return slices.Clone(d.markerTypes)
}

// TypeMarkers 返回附着在类型本身上的标记。
func (d *TypeDescription) TypeMarkers() []Marker {
	d.ensureParsed()
	return slices.Clone(d.typeMarkers)
}

// Members 返回所有带标记的成员。同一成员带多个标记时每个标记各有一条记录。
func (d *TypeDescription) Members() []*Member {
	d.ensureParsed()
	return slices.Clone(d.members)
}

func (d *TypeDescription) Fields() []*Member {
	d.ensureParsed()
	return filterKind(d.members, KindField)
}

func (d *TypeDescription) Properties() []*Member {
	d.ensureParsed()
	return filterKind(d.members, KindProperty)
}

func (d *TypeDescription) Methods() []*Member {
	d.ensureParsed()
	return filterKind(d.members, KindMethod)
}

// Constructors 返回类型声明的全部构造函数（无论是否带标记），按声明顺序。
func (d *TypeDescription) Constructors() []*Member {
	d.ensureParsed()
	return slices.Clone(d.ctors)
}

// DefaultConstructor 返回参数最少的构造函数，参数个数相同时取先声明的；没有构造函数时返回 nil。
func (d *TypeDescription) DefaultConstructor() *Member {
	d.ensureParsed()
	return d.defaultCtor
}

func filterKind(members []*Member, kind MemberKind) []*Member {
	var out []*Member
	for _, m := range members {
		if kind.Has(m.kind) {
			out = append(out, m)
		}
	}
	return out
}

// parse 解析类型自身声明的成员。重入调用直接返回 false。
func (d *TypeDescription) parse(kind MemberKind) bool {
	if d.parsed || d.registry == nil {
		return false
	}
	d.parsed = true
	d.kind = kind

	if d.typ.Kind() != reflect.Struct {
		return true
	}

	r := d.registry
	markers := r.MappedMarkers(true)

	baseField := -1
	if i, ok := embeddedBase(d.typ); ok {
		baseField = i
		d.linkBase(i, kind)
	}

	for i := 0; i < d.typ.NumField(); i++ {
		if i == baseField {
			continue
		}
		f := d.typ.Field(i)
		if f.Name == "_" {
			d.parseDeclaration(f, markers, kind)
			continue
		}
		if kind.Has(KindField) {
			d.parseField(f, markers)
		}
	}

	if kind.Has(KindConstructor) {
		d.parseConstructors()
	}

	r.logger.Debug("type parsed",
		logging.Field{Key: "type", Value: d.typ.String()},
		logging.Field{Key: "kind", Value: kind.String()},
		logging.Field{Key: "members", Value: len(d.members)},
		logging.Field{Key: "constructors", Value: len(d.ctors)})
	return true
}

// embeddedBase 找到第一个嵌入的结构体（或结构体指针）字段。
func embeddedBase(t reflect.Type) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		bt := f.Type
		if bt.Kind() == reflect.Pointer {
			bt = bt.Elem()
		}
		if bt.Kind() == reflect.Struct {
			return i, true
		}
	}
	return -1, false
}

func (d *TypeDescription) linkBase(i int, kind MemberKind) {
	f := d.typ.Field(i)
	bt := f.Type
	ptr := bt.Kind() == reflect.Pointer
	if ptr {
		bt = bt.Elem()
	}
	if bt == d.typ {
		return
	}
	base := d.registry.Describe(bt, kind)
	// 嵌入关系成环时断开，保证祖先链有限
	for b := base; b != nil; b = b.base {
		if b == d {
			return
		}
	}
	d.base = base
	d.baseIndex = []int{i}
	d.basePtr = ptr
}

func (d *TypeDescription) parseField(f reflect.StructField, markers []reflect.Type) {
	for _, mt := range markers {
		key, _ := d.registry.TagKey(mt)
		value, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}
		marker, err := decodeMarker(mt, value)
		if err != nil {
			d.registry.logger.Warn("invalid marker tag, field skipped",
				logging.Field{Key: "type", Value: d.typ.String()},
				logging.Field{Key: "field", Value: f.Name},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		d.add(&Member{
			kind:         KindField,
			owner:        d.typ,
			name:         f.Name,
			typ:          f.Type,
			providerType: ProviderTypeOf(f.Type),
			marker:       marker,
			markerType:   mt,
			tag:          value,
			index:        f.Index,
		})
	}
}

// parseDeclaration 解析空白字段上的声明：类型级标记、方法标记或属性标记。
// 标签值格式为 "method=Name[,payload]"、"property=Name[,payload]"，其余都视为类型级标记的负载。
func (d *TypeDescription) parseDeclaration(f reflect.StructField, markers []reflect.Type, kind MemberKind) {
	for _, mt := range markers {
		key, _ := d.registry.TagKey(mt)
		value, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}

		declKind, name, payload := splitDeclaration(value)
		if declKind != KindNone && !kind.Has(declKind) {
			continue
		}

		marker, err := decodeMarker(mt, payload)
		if err != nil {
			d.warn("invalid marker tag, declaration skipped", value, err)
			continue
		}

		switch declKind {
		case KindMethod:
			m, err := d.newMethod(name)
			if err != nil {
				d.warn("invalid method declaration", value, err)
				continue
			}
			d.add(m.withMarker(marker, mt, payload))
		case KindProperty:
			m, err := d.newProperty(name)
			if err != nil {
				d.warn("invalid property declaration", value, err)
				continue
			}
			d.add(m.withMarker(marker, mt, payload))
		default:
			d.typeMarkers = append(d.typeMarkers, marker)
			d.noteMarker(mt)
		}
	}
}

func splitDeclaration(value string) (MemberKind, string, string) {
	var kind MemberKind
	var rest string
	switch {
	case strings.HasPrefix(value, "method="):
		kind, rest = KindMethod, strings.TrimPrefix(value, "method=")
	case strings.HasPrefix(value, "property="):
		kind, rest = KindProperty, strings.TrimPrefix(value, "property=")
	default:
		return KindNone, "", value
	}
	name, payload, _ := strings.Cut(rest, ",")
	return kind, strings.TrimSpace(name), payload
}

func (d *TypeDescription) newMethod(name string) (*Member, error) {
	method, ok := reflect.PointerTo(d.typ).MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("method %s not found on *%v", name, d.typ)
	}
	mt := method.Type
	var out reflect.Type
	if mt.NumOut() > 0 && mt.Out(0) != errorIface {
		out = mt.Out(0)
	}
	return &Member{
		kind:         KindMethod,
		owner:        d.typ,
		name:         name,
		typ:          out,
		providerType: out,
		params:       paramsOf(mt, 1),
	}, nil
}

func (d *TypeDescription) newProperty(name string) (*Member, error) {
	pt := reflect.PointerTo(d.typ)
	setter, ok := pt.MethodByName("Set" + name)
	if !ok {
		return nil, fmt.Errorf("setter Set%s not found on *%v", name, d.typ)
	}
	st := setter.Type
	if st.NumIn() != 2 || st.NumOut() > 1 || (st.NumOut() == 1 && st.Out(0) != errorIface) {
		return nil, fmt.Errorf("setter Set%s must take one argument and return nothing or error", name)
	}
	typ := st.In(1)

	var getter string
	if g, ok := pt.MethodByName(name); ok && g.Type.NumIn() == 1 && g.Type.NumOut() == 1 && g.Type.Out(0) == typ {
		getter = name
	}
	return &Member{
		kind:         KindProperty,
		owner:        d.typ,
		name:         name,
		typ:          typ,
		providerType: ProviderTypeOf(typ),
		getter:       getter,
	}, nil
}

func (d *TypeDescription) parseConstructors() {
	pt := reflect.PointerTo(d.typ)
	if !pt.Implements(ctorSourceIface) {
		return
	}
	src := reflect.New(d.typ).Interface().(ConstructorSource)
	for _, c := range src.Constructors() {
		m, ok := newConstructor(d.typ, c)
		if !ok {
			d.registry.logger.Debug("constructor ignored",
				logging.Field{Key: "type", Value: d.typ.String()},
				logging.Field{Key: "fn", Value: fmt.Sprintf("%T", c.fn)})
			continue
		}
		d.ctors = append(d.ctors, m)
		if d.defaultCtor == nil || len(m.params) < len(d.defaultCtor.params) {
			d.defaultCtor = m
		}
		for _, marker := range c.markers {
			if marker == nil {
				continue
			}
			mt := reflect.TypeOf(marker)
			if d.registry.IsMappedMarker(mt, true) {
				d.add(m.withMarker(marker, mt, ""))
			}
		}
	}
}

func (d *TypeDescription) add(m *Member) {
	d.members = append(d.members, m)
	d.byMarker[m.markerType] = append(d.byMarker[m.markerType], m)
	d.noteMarker(m.markerType)
}

func (d *TypeDescription) noteMarker(mt reflect.Type) {
	if !slices.Contains(d.markerTypes, mt) {
		d.markerTypes = append(d.markerTypes, mt)
	}
}

func (d *TypeDescription) warn(msg, decl string, err error) {
	d.registry.logger.Warn(msg,
		logging.Field{Key: "type", Value: d.typ.String()},
		logging.Field{Key: "declaration", Value: decl},
		logging.Field{Key: "error", Value: err.Error()})
}
