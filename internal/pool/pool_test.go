package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/injector/di"
)

type fakeClient struct {
	name   string
	closed bool
}

type fakeFactory struct {
	*Pool[*fakeClient]
}

type recorder struct {
	opened []string
	closed []string
}

func newFakePool(rec *recorder, names ...string) *Pool[*fakeClient] {
	open := func(name string) (*fakeClient, error) {
		if name == "broken" {
			return nil, errors.New("dial failed")
		}
		rec.opened = append(rec.opened, name)
		return &fakeClient{name: name}, nil
	}
	closeFn := func(name string, c *fakeClient) error {
		rec.closed = append(rec.closed, name)
		c.closed = true
		return nil
	}
	return New("fake", names, open, closeFn, nil)
}

func TestPoolDefault(t *testing.T) {
	assert.Equal(t, "default", newFakePool(&recorder{}, "a", "default").Default())
	assert.Equal(t, "only", newFakePool(&recorder{}, "only").Default())
	assert.Equal(t, "", newFakePool(&recorder{}, "a", "b").Default())
	assert.Equal(t, "", newFakePool(&recorder{}).Default())
}

func TestPoolGetIsLazyAndCached(t *testing.T) {
	rec := &recorder{}
	p := newFakePool(rec, "a", "b", "broken")
	assert.Empty(t, rec.opened)

	first, err := p.Get("a")
	require.NoError(t, err)
	second, err := p.Get("a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"a"}, rec.opened)

	_, err = p.Get("missing")
	assert.ErrorContains(t, err, "not configured")
	_, err = p.Get("broken")
	assert.ErrorContains(t, err, "dial failed")

	require.NoError(t, p.Release("a"))
	assert.True(t, first.closed)
	third, err := p.Get("a")
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	_, err = p.Get("b")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.ElementsMatch(t, []string{"a", "a", "b"}, rec.closed)
}

func TestBind(t *testing.T) {
	rec := &recorder{}
	p := newFakePool(rec, "default", "other")
	factory := &fakeFactory{Pool: p}

	inj := di.New()
	require.NoError(t, Bind[*fakeClient](inj, factory, p))

	assert.Same(t, factory, di.MustResolve[*fakeFactory](inj))
	assert.Empty(t, rec.opened)

	client := di.MustResolve[*fakeClient](inj)
	assert.Equal(t, "default", client.name)

	// 注销默认客户端只释放它自己
	require.NoError(t, di.Unbind[*fakeClient](inj))
	assert.True(t, client.closed)
	assert.Equal(t, []string{"default"}, rec.closed)

	_, err := factory.Get("other")
	require.NoError(t, err)
	require.NoError(t, di.Unbind[*fakeFactory](inj))
	assert.Equal(t, []string{"default", "other"}, rec.closed)
}

func TestBindWithoutDefault(t *testing.T) {
	p := newFakePool(&recorder{}, "a", "b")
	inj := di.New()
	require.NoError(t, Bind[*fakeClient](inj, &fakeFactory{Pool: p}, p))

	assert.True(t, inj.Has(di.TypeOf[*fakeFactory]()))
	assert.False(t, inj.Has(di.TypeOf[*fakeClient]()))
}

// pairFactory 同时持有两个客户端集合，Close 关闭二者
type pairFactory struct {
	*Pool[*fakeClient]
	secondary *Pool[*fakeClient]
}

func (f *pairFactory) Close() error {
	return errors.Join(f.Pool.Close(), f.secondary.Close())
}

func TestBindUsesFactoryClose(t *testing.T) {
	primary, secondary := &recorder{}, &recorder{}
	factory := &pairFactory{
		Pool:      newFakePool(primary, "default"),
		secondary: newFakePool(secondary, "default"),
	}

	inj := di.New()
	require.NoError(t, Bind[*fakeClient](inj, factory, factory.Pool))

	_ = di.MustResolve[*fakeClient](inj)
	_, err := factory.secondary.Get("default")
	require.NoError(t, err)

	require.NoError(t, di.Unbind[*pairFactory](inj))
	assert.Equal(t, []string{"default"}, primary.closed)
	assert.Equal(t, []string{"default"}, secondary.closed)
}
