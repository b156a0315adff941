package di

import (
	"errors"
	"reflect"
	"slices"
	"strconv"
	"testing"

	"github.com/gocrud/injector/describe"
)

type testBase struct {
	X     int `inject:""`
	trace []string
	_     struct{} `inject:"property=Level"`
}

func (b *testBase) SetLevel(v int) { b.trace = append(b.trace, "base") }

type testDerived struct {
	testBase
	Y string   `inject:""`
	_ struct{} `inject:"property=Name"`
}

func (d *testDerived) SetName(v string) { d.trace = append(d.trace, "derived") }

// 测试 端到端注入：基类型和派生类型的字段都被写入
func TestInjectBaseAndDerived(t *testing.T) {
	// 准备
	inj := New()
	if err := Bind[int](inj, Provider(func() (int, error) { return 42, nil })); err != nil {
		t.Fatal(err)
	}
	if err := BindValue[string](inj, "hi"); err != nil {
		t.Fatal(err)
	}

	// 测试
	d := &testDerived{}
	if err := inj.Inject(d); err != nil {
		t.Fatal(err)
	}

	// 验证
	if d.X != 42 {
		t.Errorf("Expected X=42, got %d", d.X)
	}
	if d.Y != "hi" {
		t.Errorf("Expected Y='hi', got '%s'", d.Y)
	}
	if !slices.Equal(d.trace, []string{"base", "derived"}) {
		t.Errorf("Expected base level first, got %v", d.trace)
	}
}

// 测试 没有解析器的成员保持原值
func TestInjectSkipsMissingResolver(t *testing.T) {
	inj := New()
	d := &testDerived{Y: "keep"}
	d.X = 7

	if err := inj.Inject(d); err != nil {
		t.Fatal(err)
	}
	if d.X != 7 || d.Y != "keep" {
		t.Errorf("Expected members untouched, got X=%d Y=%s", d.X, d.Y)
	}
	if len(d.trace) != 0 {
		t.Errorf("Expected no property calls, got %v", d.trace)
	}
}

// 测试 nil 和非结构体实例
func TestInjectNilAndNonStruct(t *testing.T) {
	inj := New()
	var d *testDerived
	if err := inj.Inject(d); err != nil {
		t.Errorf("Expected nil error for nil pointer, got %v", err)
	}
	if err := inj.Inject(nil); err != nil {
		t.Errorf("Expected nil error for nil, got %v", err)
	}
	n := 3
	if err := inj.Inject(&n); err != nil {
		t.Errorf("Expected nil error for *int, got %v", err)
	}
}

// 测试 没有解析器时 Resolve 返回 nil, nil
func TestResolveAbsent(t *testing.T) {
	inj := New()
	v, err := inj.Resolve(TypeOf[string]())
	if err != nil || v != nil {
		t.Errorf("Expected nil, nil, got %v, %v", v, err)
	}

	s, err := Resolve[string](inj)
	if err != nil || s != "" {
		t.Errorf("Expected zero value, got %q, %v", s, err)
	}
}

func TestMustResolvePanicsWhenAbsent(t *testing.T) {
	inj := New()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound panic, got %v", r)
		}
	}()
	MustResolve[string](inj)
}

// 测试 子注入器沿父链查找，覆盖只影响自身
func TestChildInjectorInheritance(t *testing.T) {
	parent := New()
	_ = BindValue[string](parent, "parent")
	_ = BindValue[int](parent, 1)

	child := parent.NewChild()
	_ = BindValue[int](child, 2)

	if got := MustResolve[string](child); got != "parent" {
		t.Errorf("Expected inherited 'parent', got '%s'", got)
	}
	if got := MustResolve[int](child); got != 2 {
		t.Errorf("Expected child override 2, got %d", got)
	}
	if got := MustResolve[int](parent); got != 1 {
		t.Errorf("Expected parent value 1, got %d", got)
	}

	if _, ok := child.GetResolver(TypeOf[string](), false); ok {
		t.Error("Expected no local resolver for string on child")
	}

	if err := Unbind[int](child); err != nil {
		t.Fatal(err)
	}
	if got := MustResolve[int](child); got != 1 {
		t.Errorf("Expected parent value after unbind, got %d", got)
	}
}

// 测试 子注入器忽略 WithRegistry，始终使用根注入器的注册表
func TestNewChildKeepsRootRegistry(t *testing.T) {
	root := New()
	_ = BindValue[string](root, "hi")

	child := root.NewChild(WithRegistry(describe.NewRegistry()))
	if child.Registry() != root.Registry() {
		t.Fatal("Expected child to share the root registry")
	}

	d := &testDerived{}
	if err := child.Inject(d); err != nil {
		t.Fatal(err)
	}
	if d.Y != "hi" {
		t.Errorf("Expected Y='hi' injected through child, got '%s'", d.Y)
	}
}

func TestResolveNilType(t *testing.T) {
	inj := New()
	if _, err := inj.Resolve(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

// 测试 Lazy 的延迟解析经过注入器链上最近的同步函数
func TestLazyResolvesThroughSerializer(t *testing.T) {
	root := New()
	_ = BindValue[string](root, "s")

	var rootCalls, childCalls int
	root.SetSerializer(func(fn func() error) error {
		rootCalls++
		return fn()
	})
	child := root.NewChild(WithSerializer(func(fn func() error) error {
		childCalls++
		return fn()
	}))
	plain := root.NewChild()

	type holder struct {
		S Lazy[string] `inject:""`
	}
	var fromChild, fromPlain holder
	if err := child.Inject(&fromChild); err != nil {
		t.Fatal(err)
	}
	if err := plain.Inject(&fromPlain); err != nil {
		t.Fatal(err)
	}
	if rootCalls != 0 || childCalls != 0 {
		t.Fatalf("Expected no serialized calls during inject, got %d/%d", rootCalls, childCalls)
	}

	if fromChild.S.MustGet() != "s" || fromPlain.S.MustGet() != "s" {
		t.Fatal("Expected lazy values resolved")
	}
	if childCalls != 1 {
		t.Errorf("Expected child serializer used once, got %d", childCalls)
	}
	if rootCalls != 1 {
		t.Errorf("Expected plain child to fall back to root serializer, got %d", rootCalls)
	}

	// 同步函数返回的错误原样返回
	boom := errors.New("locked")
	root.SetSerializer(func(func() error) error { return boom })
	if _, err := fromPlain.S.Get(); err != boom {
		t.Errorf("Expected serializer error, got %v", err)
	}
}

// 测试 注入器总是能解析到自身
func TestInjectorResolvesItself(t *testing.T) {
	root := New()
	child := root.NewChild()

	if got := MustResolve[*Injector](root); got != root {
		t.Error("Expected root to resolve itself")
	}
	if got := MustResolve[*Injector](child); got != child {
		t.Error("Expected child to resolve itself")
	}
	if child.Registry() != root.Registry() {
		t.Error("Expected child to share the registry")
	}
}

type countingHook struct {
	registered   int
	unregistered int
	failUnreg    error
}

func (h *countingHook) Resolve(*Injector, reflect.Type) (any, error) { return "hook", nil }

func (h *countingHook) OnRegister(*Injector, reflect.Type) error {
	h.registered++
	return nil
}

func (h *countingHook) OnUnregister(*Injector, reflect.Type) error {
	h.unregistered++
	return h.failUnreg
}

// 测试 注册钩子：同一个实例重复注册不触发，替换时注销旧的
func TestRegisterHooks(t *testing.T) {
	inj := New()
	first := &countingHook{}
	second := &countingHook{}

	_ = Bind[string](inj, first)
	_ = Bind[string](inj, first)
	if first.registered != 1 {
		t.Errorf("Expected 1 OnRegister, got %d", first.registered)
	}

	_ = Bind[string](inj, second)
	if first.unregistered != 1 {
		t.Errorf("Expected old resolver unregistered, got %d", first.unregistered)
	}
	if second.registered != 1 {
		t.Errorf("Expected new resolver registered, got %d", second.registered)
	}

	// 注销钩子失败时映射保留
	second.failUnreg = errors.New("busy")
	if err := Unbind[string](inj); err == nil || err.Error() != "busy" {
		t.Errorf("Expected hook error, got %v", err)
	}
	if r, _ := inj.GetResolver(TypeOf[string](), false); r != Resolver(second) {
		t.Error("Expected mapping kept after failed unregister")
	}
}

func TestRegisterNilResolver(t *testing.T) {
	inj := New()
	if err := inj.Register(TypeOf[int](), nil); !errors.Is(err, ErrNilResolver) {
		t.Errorf("Expected ErrNilResolver, got %v", err)
	}
}

// 测试 All 按注册顺序返回自身的映射
func TestAllInRegistrationOrder(t *testing.T) {
	inj := New()
	_ = BindValue[int](inj, 1)
	_ = BindValue[string](inj, "s")
	_ = BindValue[bool](inj, true)
	_ = Unbind[string](inj)

	var types []reflect.Type
	for typ := range inj.All() {
		types = append(types, typ)
	}
	want := []reflect.Type{TypeOf[*Injector](), TypeOf[int](), TypeOf[bool]()}
	if !slices.Equal(types, want) {
		t.Errorf("Expected %v, got %v", want, types)
	}
}

type autowire struct{}

func (autowire) TagKey() string { return "autowire" }

type customTarget struct {
	A string `autowire:""`
	B string `inject:""`
}

// 测试 注入器只处理自己的标记
func TestCustomMarker(t *testing.T) {
	inj, err := NewFor[autowire]()
	if err != nil {
		t.Fatal(err)
	}
	_ = BindValue[string](inj, "v")

	target := &customTarget{}
	if err := inj.Inject(target); err != nil {
		t.Fatal(err)
	}
	if target.A != "v" {
		t.Errorf("Expected A='v', got '%s'", target.A)
	}
	if target.B != "" {
		t.Errorf("Expected B untouched, got '%s'", target.B)
	}
	if !inj.Registry().IsMappedMarker(TypeOf[autowire](), false) {
		t.Error("Expected marker mapped into the registry")
	}
}

func TestNewWithMarkerRejectsNonMarker(t *testing.T) {
	if _, err := NewWithMarker(TypeOf[string]()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

type methodTarget struct {
	prefix string
	called int
	_      struct{} `inject:"method=Init"`
}

func (m *methodTarget) Init(p string, n int) error {
	m.prefix = p
	m.called = n
	if p == "fail" {
		return errors.New("init failed")
	}
	return nil
}

// 测试 标记的方法在注入时调用，参数由注入器解析
func TestInjectInvokesMarkedMethod(t *testing.T) {
	inj := New()
	_ = BindValue[string](inj, "svc")

	m := &methodTarget{}
	if err := inj.Inject(m); err != nil {
		t.Fatal(err)
	}
	if m.prefix != "svc" || m.called != 0 {
		t.Errorf("Expected Init(svc, 0), got Init(%s, %d)", m.prefix, m.called)
	}

	// 方法返回的错误原样返回
	_ = BindValue[string](inj, "fail")
	if err := inj.Inject(&methodTarget{}); err == nil || err.Error() != "init failed" {
		t.Errorf("Expected init error, got %v", err)
	}
}

func TestInvoke(t *testing.T) {
	inj := New()
	_ = BindValue[int](inj, 20)
	_ = BindValue[string](inj, "x")

	out, err := inj.Invoke(func(n int, s string) (string, error) {
		return s + "=" + strconv.Itoa(n), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "x=20" {
		t.Errorf("Expected [x=20], got %v", out)
	}

	boom := errors.New("boom")
	if _, err := inj.Invoke(func() error { return boom }); err != boom {
		t.Errorf("Expected unwrapped error, got %v", err)
	}
	if _, err := inj.Invoke(42); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

// 测试 Prepare 立即解析参数，调用推迟到返回的函数
func TestPrepare(t *testing.T) {
	inj := New()
	_ = BindValue[int](inj, 1)

	called := 0
	call, err := inj.Prepare(func(n int) int {
		called++
		return n
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = BindValue[int](inj, 2)
	if called != 0 {
		t.Fatal("Expected fn not called by Prepare")
	}

	out, err := call()
	if err != nil {
		t.Fatal(err)
	}
	if called != 1 || out[0] != 1 {
		t.Errorf("Expected arguments resolved at Prepare time, got %v", out)
	}
	if _, err := inj.Prepare("fn"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestDescribeUsesRegistry(t *testing.T) {
	inj := New()
	d := inj.Describe(TypeOf[*testDerived]())
	if d.Type() != TypeOf[testDerived]() {
		t.Errorf("Expected testDerived, got %v", d.Type())
	}
	if d.Base() == nil || d.Base().Type() != TypeOf[testBase]() {
		t.Error("Expected testBase as base description")
	}
	if len(d.ByMarkerKind(TypeOf[Inject](), describe.KindField)) != 1 {
		t.Error("Expected one marked field declared on testDerived")
	}
}
