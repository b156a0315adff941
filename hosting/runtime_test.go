package hosting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/injector/di"
)

type clock struct{}

// tickService 阻塞直到 context 取消
type tickService struct {
	Clock   *clock `inject:""`
	started chan struct{}
	stopped atomic.Bool
}

func (s *tickService) Start(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

func (s *tickService) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

type resource struct {
	mu     sync.Mutex
	events *[]string
	name   string
}

func (r *resource) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, event+":"+r.name)
}

func TestRuntimeRunAndRelease(t *testing.T) {
	inj := di.New()
	var events []string
	first := &resource{events: &events, name: "first"}
	second := &resource{events: &events, name: "second"}

	svc := &tickService{started: make(chan struct{})}
	rt := NewRuntime(inj)
	err := rt.Apply(
		WithSetup(func(inj *di.Injector) error {
			return errors.Join(
				di.BindValue(inj, &clock{}),
				di.Bind[*resource](inj, di.NewManagedValue(first, func(any) error { first.record("release"); return nil })),
				di.BindValue(inj, svc),
			)
		}),
		WithSetup(func(inj *di.Injector) error {
			type named struct{ *resource }
			return di.Bind[named](inj, di.NewManagedValue(named{second}, func(any) error { second.record("release"); return nil }))
		}),
		WithHostedService[*tickService](),
	)
	require.NoError(t, err)

	rt.Lifecycle.OnStop(func(context.Context) error {
		first.record("stop")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("hosted service did not start")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
	}

	assert.True(t, svc.stopped.Load())
	assert.Equal(t, []string{"stop:first", "release:second", "release:first"}, events)
	assert.False(t, inj.Has(di.TypeOf[*clock]()))
	assert.True(t, inj.Has(di.TypeOf[*di.Injector]()))
}

func TestRuntimeShutdownOnServiceError(t *testing.T) {
	rt := NewRuntime(di.New())
	boom := errors.New("boom")
	require.NoError(t, rt.Apply(WithWorker(func(context.Context) error { return boom })))

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime should shut down after a worker failure")
	}
}

func TestRuntimeStartError(t *testing.T) {
	rt := NewRuntime(di.New())
	rt.ShutdownTimeout = time.Second
	require.NoError(t, rt.Apply(WithHostedService[HostedService]()))

	err := rt.Run(context.Background())
	assert.Error(t, err)
}

func TestLifecycleStopCollectsErrors(t *testing.T) {
	var l Lifecycle
	var order []int
	l.OnStop(func(context.Context) error { order = append(order, 1); return errors.New("a") })
	l.OnStop(func(context.Context) error { order = append(order, 2); return errors.New("b") })

	err := l.stop(context.Background())
	assert.ErrorContains(t, err, "a")
	assert.ErrorContains(t, err, "b")
	assert.Equal(t, []int{2, 1}, order)
}
