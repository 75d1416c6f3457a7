package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	rows    int64
	err     error
}

func (f *fakePruner) record(before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.rows, f.err
}

func (f *fakePruner) DeleteStaleGuest(_ context.Context, before time.Time) (int64, error) {
	return f.record(before)
}

func (f *fakePruner) DeleteViewedBefore(_ context.Context, before time.Time) (int64, error) {
	return f.record(before)
}

type flakyExecutor struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (e *flakyExecutor) Execute(context.Context, *Job) (int64, error) {
	e.calls.Add(1)
	if e.failures.Add(-1) >= 0 {
		return 0, errors.New("database unavailable")
	}
	return 7, nil
}

func startScheduler(t *testing.T, cfg Config, executor JobExecutor, log *zap.Logger) (*Scheduler, <-chan Job) {
	t.Helper()
	done := make(chan Job, 10)
	cfg.OnDone = func(job Job) { done <- job }
	s := NewScheduler(cfg, executor, log)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, done
}

func waitJob(t *testing.T, done <-chan Job) Job {
	t.Helper()
	select {
	case job := <-done:
		return job
	case <-time.After(2 * time.Second):
		require.FailNow(t, "job did not finish")
		return Job{}
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name       string
		expr       string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{name: "empty defaults to 3am", expr: "", wantHour: 3},
		{name: "half past four", expr: "30 4 * * *", wantHour: 4, wantMinute: 30},
		{name: "midnight", expr: "0 0 * * *"},
		{name: "extra whitespace", expr: "  15   23   *   *   *  ", wantHour: 23, wantMinute: 15},
		{name: "wildcard minute keeps zero", expr: "* 5 * * *", wantHour: 5},
		{name: "single field", expr: "5", wantErr: true},
		{name: "minute out of range", expr: "60 1 * * *", wantErr: true},
		{name: "hour out of range", expr: "0 24 * * *", wantErr: true},
		{name: "not a number", expr: "x 1 * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseSchedule(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour, "hour mismatch")
			assert.Equal(t, tt.wantMinute, minute, "minute mismatch")
		})
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindPruneGuestCarts, time.Now(), 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	require.NotNil(t, job.NextRetryAt)

	job.Start()
	job.Fail("boom again")
	assert.False(t, job.ShouldRetry(), "retries are exhausted")

	job.Complete(3)
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, int64(3), job.Affected)
}

func TestHousekeepingExecutor(t *testing.T) {
	carts := &fakePruner{rows: 4}
	history := &fakePruner{rows: 9}
	executor := NewHousekeepingExecutor(carts, history)
	cutoff := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)

	for _, kind := range AllJobKinds() {
		t.Run(string(kind), func(t *testing.T) {
			_, err := executor.Execute(context.Background(), NewJob(kind, cutoff, 0))
			require.NoError(t, err)
		})
	}
	assert.Equal(t, []time.Time{cutoff}, carts.cutoffs)
	assert.Equal(t, []time.Time{cutoff}, history.cutoffs)

	_, err := executor.Execute(context.Background(), NewJob("REINDEX", cutoff, 0))
	assert.ErrorIs(t, err, ErrUnknownJobKind)
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultConfig(), &flakyExecutor{}, nil)
	assert.False(t, s.IsRunning())
	err := s.SubmitJob(NewJob(JobKindPruneGuestCarts, time.Now(), 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsJobs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pruner := &fakePruner{rows: 12}
	s, done := startScheduler(t, Config{Workers: 2, JobTimeout: time.Second}, NewHousekeepingExecutor(pruner, pruner), zap.New(core))

	require.NoError(t, s.SubmitJob(NewJob(JobKindPruneGuestCarts, time.Now(), 0)))
	job := waitJob(t, done)

	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, int64(12), job.Affected)
	assert.Equal(t, 1, logs.FilterMessage("Job completed").Len())
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	executor := &flakyExecutor{}
	executor.failures.Store(2)
	s, done := startScheduler(t, Config{
		Workers:       1,
		JobTimeout:    time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, executor, nil)

	require.NoError(t, s.SubmitJob(NewJob(JobKindPruneRecentlyViewed, time.Now(), 3)))
	job := waitJob(t, done)

	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 2, job.RetryCount)
	assert.Equal(t, int32(3), executor.calls.Load())
}

func TestScheduler_GivesUpAfterRetries(t *testing.T) {
	executor := &flakyExecutor{}
	executor.failures.Store(100)
	s, done := startScheduler(t, Config{Workers: 1, JobTimeout: time.Second, RetryDelay: time.Millisecond}, executor, nil)

	require.NoError(t, s.SubmitJob(NewJob(JobKindPruneGuestCarts, time.Now(), 1)))
	job := waitJob(t, done)

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "database unavailable", job.Error)
	assert.Equal(t, int32(2), executor.calls.Load())
}

func TestDailyTrigger_ShouldRun(t *testing.T) {
	d := NewDailyTrigger(DailyTriggerConfig{Hour: 3, Minute: 30}, nil, nil)

	tests := []struct {
		name     string
		time     time.Time
		expected bool
	}{
		{"exact match", time.Date(2026, 1, 15, 3, 30, 0, 0, time.UTC), true},
		{"wrong hour", time.Date(2026, 1, 15, 4, 30, 0, 0, time.UTC), false},
		{"wrong minute", time.Date(2026, 1, 15, 3, 31, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.shouldRun(tt.time))
		})
	}

	d.lastRunDate = "2026-01-15"
	assert.False(t, d.shouldRun(time.Date(2026, 1, 15, 3, 30, 0, 0, time.UTC)), "runs once per day")
	assert.True(t, d.shouldRun(time.Date(2026, 1, 16, 3, 30, 0, 0, time.UTC)))
}

func TestDailyTrigger_SubmitsCutoffs(t *testing.T) {
	carts := &fakePruner{}
	history := &fakePruner{}
	s, done := startScheduler(t, Config{Workers: 1, JobTimeout: time.Second}, NewHousekeepingExecutor(carts, history), nil)
	d := NewDailyTrigger(DailyTriggerConfig{
		Hour:              3,
		GuestCartTTL:      30 * 24 * time.Hour,
		RecentlyViewedTTL: 90 * 24 * time.Hour,
	}, s, nil)

	now := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	d.checkAndTrigger(now)
	waitJob(t, done)
	waitJob(t, done)

	assert.Equal(t, []time.Time{now.Add(-30 * 24 * time.Hour)}, carts.cutoffs)
	assert.Equal(t, []time.Time{now.Add(-90 * 24 * time.Hour)}, history.cutoffs)

	d.checkAndTrigger(now.Add(30 * time.Second))
	assert.Len(t, carts.cutoffs, 1, "a second tick in the same minute is ignored")
}

func TestDailyTrigger_StartStop(t *testing.T) {
	d := NewDailyTrigger(DailyTriggerConfig{CheckInterval: 5 * time.Millisecond}, NewScheduler(DefaultConfig(), &flakyExecutor{}, nil), nil)
	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Start(context.Background()), "starting twice is a no-op")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx))
}
