package di

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/gocrud/injector/describe"
	"github.com/gocrud/injector/logging"
)

// Injector 类型到解析器的映射，可以组成父子链。
//
// 查找解析器时先查自身再沿父链向上；注入时只处理带有注入器标记的成员。
// Injector 不做内部加锁，注册和解析应在同一个 goroutine 中完成，
// 或者由调用方自行同步；Lazy 的延迟解析经过 Serialize，调用方可以用
// WithSerializer 把它纳入自己的同步。
type Injector struct {
	parent    *Injector
	resolvers map[reflect.Type]Resolver
	order     []reflect.Type
	registry  *describe.Registry
	marker    reflect.Type
	logger    logging.Logger
	serialize func(fn func() error) error
}

// Option 注入器选项
type Option func(*Injector)

// WithLogger 设置日志，子注入器继承父注入器的日志。
func WithLogger(logger logging.Logger) Option {
	return func(i *Injector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithRegistry 使用已有的描述信息注册表，默认每个根注入器创建自己的注册表。
func WithRegistry(r *describe.Registry) Option {
	return func(i *Injector) {
		if r != nil {
			i.registry = r
		}
	}
}

// WithSerializer 设置延迟解析的同步函数，没有设置时使用父注入器的。
// fn 必须调用传入的函数并返回它的错误。
func WithSerializer(fn func(func() error) error) Option {
	return func(i *Injector) {
		i.serialize = fn
	}
}

// New 创建使用默认 Inject 标记的根注入器。
func New(opts ...Option) *Injector {
	i, _ := NewWithMarker(injectMarker, opts...)
	return i
}

// NewFor 创建使用标记 M 的根注入器。
func NewFor[M describe.Marker](opts ...Option) (*Injector, error) {
	return NewWithMarker(reflect.TypeFor[M](), opts...)
}

// NewWithMarker 创建使用指定标记类型的根注入器，标记会被映射到注册表中。
func NewWithMarker(marker reflect.Type, opts ...Option) (*Injector, error) {
	if !describe.IsMarker(marker) {
		return nil, fmt.Errorf("%w: %v is not a marker type", ErrInvalidArgument, marker)
	}
	i := &Injector{
		resolvers: make(map[reflect.Type]Resolver),
		marker:    marker,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.registry == nil {
		i.registry = describe.NewRegistry(describe.WithLogger(i.logger.WithCategory("describe")))
	}
	if err := i.registry.MapMarker(marker); err != nil {
		return nil, err
	}
	i.registerSelf()
	return i, nil
}

// NewChild 创建子注入器，共享注册表、标记和日志。
// 子注入器总是使用根注入器的注册表，WithRegistry 对它无效。
func (i *Injector) NewChild(opts ...Option) *Injector {
	c := &Injector{
		parent:    i,
		resolvers: make(map[reflect.Type]Resolver),
		marker:    i.marker,
		logger:    i.logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = i.registry
	c.registerSelf()
	return c
}

// SetSerializer 替换当前注入器的同步函数，fn 为 nil 时改用父注入器的。
// 应在注入器被并发使用之前调用。
func (i *Injector) SetSerializer(fn func(func() error) error) {
	i.serialize = fn
}

// Serialize 通过注入器链上最近的同步函数执行 fn；都没有设置时直接执行。
func (i *Injector) Serialize(fn func() error) error {
	for cur := i; cur != nil; cur = cur.parent {
		if cur.serialize != nil {
			return cur.serialize(fn)
		}
	}
	return fn()
}

// registerSelf 让 *Injector 始终解析为当前注入器。
func (i *Injector) registerSelf() {
	t := reflect.TypeFor[*Injector]()
	i.resolvers[t] = NewValue(i)
	i.order = append(i.order, t)
}

func (i *Injector) Parent() *Injector            { return i.parent }
func (i *Injector) Registry() *describe.Registry { return i.registry }
func (i *Injector) Marker() reflect.Type         { return i.marker }
func (i *Injector) Logger() logging.Logger       { return i.logger }

// Register 把 t 映射到解析器 r。
//
// 已有的同一个解析器实例再次注册不做任何事；映射到其他解析器时先注销旧的。
// 注册钩子返回错误时映射保留，错误原样返回。
func (i *Injector) Register(t reflect.Type, r Resolver) error {
	if t == nil {
		return fmt.Errorf("%w: type is nil", ErrInvalidArgument)
	}
	if r == nil {
		return ErrNilResolver
	}
	if old, ok := i.resolvers[t]; ok {
		if sameResolver(old, r) {
			return nil
		}
		if err := i.Unregister(t); err != nil {
			return err
		}
	}
	i.resolvers[t] = r
	i.order = append(i.order, t)
	i.logger.Debug("resolver registered",
		logging.Field{Key: "type", Value: t.String()},
		logging.Field{Key: "resolver", Value: fmt.Sprintf("%T", r)},
	)
	if hook, ok := r.(RegisterHook); ok {
		return hook.OnRegister(i, t)
	}
	return nil
}

// Unregister 移除 t 在当前注入器上的映射，不影响父注入器。
// 注销钩子返回错误时映射保留。
func (i *Injector) Unregister(t reflect.Type) error {
	r, ok := i.resolvers[t]
	if !ok {
		return nil
	}
	if hook, ok := r.(UnregisterHook); ok {
		if err := hook.OnUnregister(i, t); err != nil {
			return err
		}
	}
	delete(i.resolvers, t)
	for n, ot := range i.order {
		if ot == t {
			i.order = append(i.order[:n], i.order[n+1:]...)
			break
		}
	}
	i.logger.Debug("resolver unregistered", logging.Field{Key: "type", Value: t.String()})
	return nil
}

// GetResolver 返回 t 的解析器，includeAncestors 为 true 时沿父链查找。
func (i *Injector) GetResolver(t reflect.Type, includeAncestors bool) (Resolver, bool) {
	for cur := i; cur != nil; cur = cur.parent {
		if r, ok := cur.resolvers[t]; ok {
			return r, true
		}
		if !includeAncestors {
			break
		}
	}
	return nil, false
}

// Has 判断 t 是否能在注入器链上找到解析器。
func (i *Injector) Has(t reflect.Type) bool {
	_, ok := i.GetResolver(t, true)
	return ok
}

// Resolve 解析类型 t。没有解析器时返回 nil, nil。
func (i *Injector) Resolve(t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: type is nil", ErrInvalidArgument)
	}
	r, ok := i.GetResolver(t, true)
	if !ok {
		i.logger.Trace("no resolver", logging.Field{Key: "type", Value: t.String()})
		return nil, nil
	}
	return r.Resolve(i, t)
}

// All 按注册顺序遍历当前注入器自身的映射。
func (i *Injector) All() iter.Seq2[reflect.Type, Resolver] {
	return func(yield func(reflect.Type, Resolver) bool) {
		for _, t := range i.order {
			if !yield(t, i.resolvers[t]) {
				return
			}
		}
	}
}

// Describe 返回 t 的描述信息，按需解析全部成员。
func (i *Injector) Describe(t reflect.Type) *describe.TypeDescription {
	return i.registry.Describe(describe.Indirect(t), describe.KindAll)
}
