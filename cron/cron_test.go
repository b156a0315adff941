package cron_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/injector/cron"
	"github.com/gocrud/injector/di"
	"github.com/gocrud/injector/logging"
)

type counter struct {
	runs atomic.Int32
}

type countJob struct {
	Counter *counter     `inject:""`
	Info    cron.JobInfo `inject:""`
}

func (j *countJob) Run(ctx context.Context) error {
	if j.Counter == nil {
		return errors.New("counter not injected")
	}
	if j.Info.Name != "count" {
		return errors.New("unexpected job info " + j.Info.Name)
	}
	j.Counter.runs.Add(1)
	return ctx.Err()
}

func newInjector(t *testing.T) (*di.Injector, *counter) {
	t.Helper()
	inj := di.New()
	c := &counter{}
	require.NoError(t, di.BindValue(inj, c))
	return inj, c
}

func TestSchedulerTriggerJob(t *testing.T) {
	inj, c := newInjector(t)
	s, err := cron.Register(inj, cron.AddJob[*countJob]("@every 1h", "count"))
	require.NoError(t, err)

	require.NoError(t, s.Trigger("count"))
	require.NoError(t, s.Trigger("count"))
	assert.Equal(t, int32(2), c.runs.Load())
	assert.Equal(t, []string{"count"}, s.Names())

	assert.Error(t, s.Trigger("missing"))
	assert.Same(t, s, di.MustResolve[*cron.Scheduler](inj))
}

func TestSchedulerFuncJob(t *testing.T) {
	inj, c := newInjector(t)
	s, err := cron.New(inj)
	require.NoError(t, err)

	var seen cron.JobInfo
	require.NoError(t, s.AddFunc("@daily", "func", func(ctx context.Context, info cron.JobInfo, cnt *counter, logger logging.Logger) {
		seen = info
		assert.NotNil(t, ctx)
		assert.NotNil(t, logger)
		cnt.runs.Add(1)
	}))
	require.NoError(t, s.Trigger("func"))

	assert.Equal(t, "func", seen.Name)
	assert.Equal(t, "@daily", seen.Spec)
	assert.False(t, seen.Started.IsZero())
	assert.Equal(t, int32(1), c.runs.Load())

	// 每次执行使用新的子注入器，作用域内的绑定不会泄漏到根注入器
	assert.False(t, inj.Has(di.TypeOf[cron.JobInfo]()))
}

func TestSchedulerJobErrors(t *testing.T) {
	inj, _ := newInjector(t)
	s, err := cron.New(inj)
	require.NoError(t, err)

	boom := errors.New("boom")
	require.NoError(t, s.AddFunc("@hourly", "fail", func() error { return boom }))
	require.NoError(t, s.AddFunc("@hourly", "panic", func() { panic("oops") }))

	assert.ErrorIs(t, s.Trigger("fail"), boom)
	assert.ErrorContains(t, s.Trigger("panic"), "panicked")
}

func TestSchedulerRegistrationErrors(t *testing.T) {
	inj, _ := newInjector(t)
	s, err := cron.New(inj)
	require.NoError(t, err)

	assert.Error(t, s.AddFunc("@hourly", "not-func", 42))
	assert.Error(t, s.AddFunc("not a spec", "bad-spec", func() {}))

	require.NoError(t, s.AddFunc("@hourly", "dup", func() {}))
	assert.Error(t, s.AddFunc("@hourly", "dup", func() {}))

	assert.True(t, s.Remove("dup"))
	assert.False(t, s.Remove("dup"))
	assert.Empty(t, s.Names())

	_, err = cron.New(inj, cron.WithLocation("Nowhere/Unknown"))
	assert.Error(t, err)

	_, err = cron.New(inj, cron.AddFunc("bad", "x", func() {}))
	assert.Error(t, err)
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	inj, c := newInjector(t)
	s, err := cron.Register(inj, cron.WithSeconds(), cron.AddJob[*countJob]("* * * * * *", "count"))
	require.NoError(t, err)

	s.Start()
	next, ok := s.Next("count")
	assert.True(t, ok)
	assert.False(t, next.IsZero())

	assert.Eventually(t, func() bool { return c.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	// 注销调度器会停止调度
	require.NoError(t, di.Unbind[*cron.Scheduler](inj))
}
