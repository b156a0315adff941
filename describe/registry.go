package describe

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/gocrud/injector/logging"
)

// Registry 类型描述的注册表。
//
// 按类型缓存 TypeDescription，并维护 标记类型 -> 描述 的反向索引。
// 按类型查找会回退到父注册表；按标记查找（ByMarker）只看本地索引，
// 它表示的是"本注册表目前为止发现了什么"，不会合并祖先的结果。
//
// Registry 没有内部锁：并发注册标记或解析新类型需要调用方自行同步。
type Registry struct {
	parent       *Registry
	markers      map[reflect.Type]string
	markerOrder  []reflect.Type
	descriptions map[reflect.Type]*TypeDescription
	byMarker     map[reflect.Type][]*TypeDescription
	logger       logging.Logger
}

// Option 配置注册表。
type Option func(*Registry)

// WithLogger 设置日志记录器，默认不输出。
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParent 设置父注册表。
func WithParent(parent *Registry) Option {
	return func(r *Registry) {
		r.parent = parent
	}
}

// NewRegistry 创建注册表。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		markers:      make(map[reflect.Type]string),
		descriptions: make(map[reflect.Type]*TypeDescription),
		byMarker:     make(map[reflect.Type][]*TypeDescription),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		if r.parent != nil {
			r.logger = r.parent.logger
		} else {
			r.logger = logging.Nop()
		}
	}
	return r
}

// NewChild 创建以 r 为父的子注册表，日志记录器沿用父注册表的。
func (r *Registry) NewChild(opts ...Option) *Registry {
	return NewRegistry(append([]Option{WithParent(r)}, opts...)...)
}

// Parent 返回父注册表，根注册表返回 nil。
func (r *Registry) Parent() *Registry {
	return r.parent
}

// MapMarker 让注册表在之后的解析中识别标记类型 t。已经解析过的描述不受影响。
func (r *Registry) MapMarker(t reflect.Type) error {
	key, err := tagKeyOf(t)
	if err != nil {
		return err
	}
	if _, ok := r.markers[t]; !ok {
		r.markerOrder = append(r.markerOrder, t)
	}
	r.markers[t] = key
	r.logger.Debug("marker mapped",
		logging.Field{Key: "marker", Value: t.String()},
		logging.Field{Key: "tag", Value: key})
	return nil
}

// MapMarker 泛型版本的 Registry.MapMarker。
func MapMarker[M Marker](r *Registry) error {
	return r.MapMarker(reflect.TypeFor[M]())
}

// UnmapMarker 取消本地映射，未映射时什么也不做。
func (r *Registry) UnmapMarker(t reflect.Type) error {
	if !IsMarker(t) {
		return fmt.Errorf("%w: %v does not implement describe.Marker", ErrInvalidArgument, t)
	}
	if _, ok := r.markers[t]; !ok {
		return nil
	}
	delete(r.markers, t)
	r.markerOrder = slices.DeleteFunc(r.markerOrder, func(m reflect.Type) bool { return m == t })
	return nil
}

// IsMappedMarker 判断 t 是否被映射为标记；inherited 为 true 时同时检查祖先注册表。
func (r *Registry) IsMappedMarker(t reflect.Type, inherited bool) bool {
	for cur := r; cur != nil; cur = cur.parent {
		if _, ok := cur.markers[t]; ok {
			return true
		}
		if !inherited {
			break
		}
	}
	return false
}

// MappedMarkers 返回已映射的标记类型，先本地后祖先，去重。
func (r *Registry) MappedMarkers(inherited bool) []reflect.Type {
	var out []reflect.Type
	for cur := r; cur != nil; cur = cur.parent {
		for _, t := range cur.markerOrder {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
		if !inherited {
			break
		}
	}
	return out
}

// TagKey 返回标记类型对应的标签键，沿祖先链查找。
func (r *Registry) TagKey(t reflect.Type) (string, bool) {
	for cur := r; cur != nil; cur = cur.parent {
		if key, ok := cur.markers[t]; ok {
			return key, true
		}
	}
	return "", false
}

// Lookup 查找已有的描述（本地优先，其次祖先），不会创建也不会解析。
func (r *Registry) Lookup(t reflect.Type) (*TypeDescription, bool) {
	t = Indirect(t)
	for cur := r; cur != nil; cur = cur.parent {
		if d, ok := cur.descriptions[t]; ok {
			return d, true
		}
	}
	return nil, false
}

// Describe 返回类型 t 的描述，必要时创建并解析。
//
// 本地没有而祖先有时返回祖先的描述；若它尚未解析，则在此解析并合并到本注册表的标记索引。
func (r *Registry) Describe(t reflect.Type, kind MemberKind) *TypeDescription {
	t = Indirect(t)
	if d, ok := r.descriptions[t]; ok {
		if d.parse(kind) {
			r.index(d)
		}
		return d
	}
	if r.parent != nil {
		if d, ok := r.parent.Lookup(t); ok {
			if d.parse(kind) {
				r.index(d)
			}
			return d
		}
	}

	d := newDescription(r, t)
	r.descriptions[t] = d
	d.parse(kind)
	r.index(d)
	return d
}

// Add 把预先创建的描述登记到注册表，替换同类型的已有描述。
// 尚未绑定注册表的描述会绑定到 r；已解析的描述立即合并到标记索引。
func (r *Registry) Add(d *TypeDescription) {
	if d.registry == nil {
		d.registry = r
	}
	r.descriptions[d.typ] = d
	if d.parsed {
		r.index(d)
	}
}

// Parse 登记并解析描述。
func (r *Registry) Parse(d *TypeDescription, kind MemberKind) {
	r.Add(d)
	if d.parse(kind) {
		r.index(d)
	}
}

// ByMarker 返回本注册表解析时发现带有标记 t 的描述，不查找祖先。
func (r *Registry) ByMarker(t reflect.Type) []*TypeDescription {
	return slices.Clone(r.byMarker[t])
}

// index 把描述发现的标记类型合并进本地反向索引，重复合并不会产生重复项。
func (r *Registry) index(d *TypeDescription) {
	for _, mt := range d.markerTypes {
		if !slices.Contains(r.byMarker[mt], d) {
			r.byMarker[mt] = append(r.byMarker[mt], d)
		}
	}
}
