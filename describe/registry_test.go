package describe_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/injector/describe"
)

type wire struct {
	Payload string
}

func (wire) TagKey() string { return "wire" }

func (wire) DecodeTag(value string) (describe.Marker, error) {
	return wire{Payload: value}, nil
}

type audit struct{}

func (audit) TagKey() string { return "audit" }

type emptyKey struct{}

func (emptyKey) TagKey() string { return "" }

var (
	wireType  = reflect.TypeFor[wire]()
	auditType = reflect.TypeFor[audit]()
)

type plain struct {
	Name string
}

type wired struct {
	Dep  *plain `wire:"primary"`
	Note string `audit:""`
}

func TestRegistry_MapMarker(t *testing.T) {
	r := describe.NewRegistry()

	require.NoError(t, r.MapMarker(wireType))
	assert.True(t, r.IsMappedMarker(wireType, false))

	key, ok := r.TagKey(wireType)
	assert.True(t, ok)
	assert.Equal(t, "wire", key)

	err := r.MapMarker(reflect.TypeFor[plain]())
	assert.ErrorIs(t, err, describe.ErrInvalidArgument)

	err = r.MapMarker(reflect.TypeFor[emptyKey]())
	assert.ErrorIs(t, err, describe.ErrInvalidArgument)

	require.NoError(t, r.UnmapMarker(wireType))
	assert.False(t, r.IsMappedMarker(wireType, false))
	// 未映射时取消映射不报错
	assert.NoError(t, r.UnmapMarker(wireType))
	assert.ErrorIs(t, r.UnmapMarker(reflect.TypeFor[plain]()), describe.ErrInvalidArgument)
}

func TestRegistry_InheritedMarkers(t *testing.T) {
	parent := describe.NewRegistry()
	require.NoError(t, describe.MapMarker[wire](parent))

	child := parent.NewChild()
	require.NoError(t, describe.MapMarker[audit](child))
	require.NoError(t, child.MapMarker(wireType))

	assert.False(t, child.IsMappedMarker(reflect.TypeFor[emptyKey](), true))
	assert.True(t, child.IsMappedMarker(wireType, true))
	assert.False(t, parent.IsMappedMarker(auditType, true))

	// 先本地后祖先，去重
	assert.Equal(t, []reflect.Type{auditType, wireType}, child.MappedMarkers(true))
	assert.Equal(t, []reflect.Type{wireType}, parent.MappedMarkers(true))
	assert.Same(t, parent, child.Parent())
}

func TestRegistry_DescribeCachesDescription(t *testing.T) {
	r := describe.NewRegistry()
	require.NoError(t, r.MapMarker(wireType))

	_, ok := r.Lookup(reflect.TypeFor[wired]())
	assert.False(t, ok)

	d := r.Describe(reflect.TypeFor[*wired](), describe.KindAll)
	assert.True(t, d.Parsed())
	assert.Equal(t, reflect.TypeFor[wired](), d.Type())
	assert.Same(t, d, r.Describe(reflect.TypeFor[wired](), describe.KindAll))

	found, ok := r.Lookup(reflect.TypeFor[**wired]())
	require.True(t, ok)
	assert.Same(t, d, found)

	assert.Equal(t, []*describe.TypeDescription{d}, r.ByMarker(wireType))
	// audit 没有映射，不参与解析
	assert.Empty(t, r.ByMarker(auditType))
}

func TestRegistry_ParentDescriptionIndexedLocally(t *testing.T) {
	parent := describe.NewRegistry()
	require.NoError(t, parent.MapMarker(wireType))

	// 在父注册表登记但尚未解析
	pending, err := describe.New(reflect.TypeFor[wired]())
	require.NoError(t, err)
	parent.Add(pending)
	assert.False(t, pending.Parsed())

	child := parent.NewChild()
	d := child.Describe(reflect.TypeFor[wired](), describe.KindAll)

	assert.Same(t, pending, d)
	assert.True(t, d.Parsed())
	assert.Same(t, parent, d.Registry())
	assert.Equal(t, []*describe.TypeDescription{d}, child.ByMarker(wireType))
	// 按标记查找只看本地
	assert.Empty(t, parent.ByMarker(wireType))

	// 已解析的描述再次从子注册表获取，不会重复进入索引
	child.Describe(reflect.TypeFor[wired](), describe.KindAll)
	assert.Len(t, child.ByMarker(wireType), 1)
}

func TestRegistry_LazyParseOnQuery(t *testing.T) {
	r := describe.NewRegistry()
	require.NoError(t, r.MapMarker(wireType))

	d, err := describe.New(reflect.TypeFor[wired]())
	require.NoError(t, err)
	r.Add(d)
	assert.Empty(t, r.ByMarker(wireType))

	// 第一次查询成员时解析
	members := d.ByMarker(wireType)
	require.Len(t, members, 1)
	assert.Equal(t, describe.KindAll, d.Kind())
	assert.Equal(t, []*describe.TypeDescription{d}, r.ByMarker(wireType))
}

func TestRegistry_ParseWithKind(t *testing.T) {
	r := describe.NewRegistry()
	require.NoError(t, r.MapMarker(wireType))

	d, err := describe.New(reflect.TypeFor[wired]())
	require.NoError(t, err)
	r.Parse(d, describe.KindMethod)

	assert.True(t, d.Parsed())
	assert.Empty(t, d.Fields())
	// 已解析后不再按其他种类重新解析
	members := len(d.Members())
	assert.False(t, d.Parse(describe.KindAll))
	r.Parse(d, describe.KindAll)
	assert.Len(t, d.Members(), members)
	assert.Empty(t, d.Fields())
}

func TestRegistry_ReparseAddsNoDuplicates(t *testing.T) {
	r := describe.NewRegistry()
	require.NoError(t, r.MapMarker(wireType))

	d := r.Describe(reflect.TypeFor[wired](), describe.KindAll)
	members := len(d.Members())
	marked := len(d.ByMarker(wireType))
	require.Equal(t, 1, marked)
	require.Len(t, r.ByMarker(wireType), 1)

	// 重复描述、解析和登记同一个类型
	assert.Same(t, d, r.Describe(reflect.TypeFor[*wired](), describe.KindAll))
	r.Parse(d, describe.KindAll)
	r.Add(d)
	assert.False(t, d.Parse(describe.KindAll))

	assert.Len(t, d.Members(), members)
	assert.Len(t, d.ByMarker(wireType), marked)
	assert.Equal(t, []*describe.TypeDescription{d}, r.ByMarker(wireType))
}

func TestNewDescriptionRejectsNil(t *testing.T) {
	_, err := describe.New(nil)
	assert.ErrorIs(t, err, describe.ErrInvalidArgument)
}
