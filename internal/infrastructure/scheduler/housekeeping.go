package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GuestCartPruner deletes abandoned guest carts
type GuestCartPruner interface {
	DeleteStaleGuest(ctx context.Context, before time.Time) (int64, error)
}

// HistoryPruner deletes old recently viewed entries
type HistoryPruner interface {
	DeleteViewedBefore(ctx context.Context, before time.Time) (int64, error)
}

// HousekeepingExecutor runs the storefront cleanup jobs
type HousekeepingExecutor struct {
	carts   GuestCartPruner
	history HistoryPruner
}

// NewHousekeepingExecutor creates an executor over the cart and history stores
func NewHousekeepingExecutor(carts GuestCartPruner, history HistoryPruner) *HousekeepingExecutor {
	return &HousekeepingExecutor{carts: carts, history: history}
}

// Execute runs one job
func (e *HousekeepingExecutor) Execute(ctx context.Context, job *Job) (int64, error) {
	switch job.Kind {
	case JobKindPruneGuestCarts:
		return e.carts.DeleteStaleGuest(ctx, job.Cutoff)
	case JobKindPruneRecentlyViewed:
		return e.history.DeleteViewedBefore(ctx, job.Cutoff)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}

// ParseSchedule reads the minute and hour of a "minute hour * * *" expression.
// An empty expression means 03:00.
func ParseSchedule(expr string) (hour, minute int, err error) {
	hour, minute = 3, 0

	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return hour, minute, nil
	}
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q needs a minute and an hour", ErrInvalidSchedule, expr)
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidSchedule, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidSchedule, parts[1])
		}
	}

	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidSchedule, minute)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidSchedule, hour)
	}
	return hour, minute, nil
}

// DailyTriggerConfig holds the daily run time and retention windows
type DailyTriggerConfig struct {
	Hour              int
	Minute            int
	CheckInterval     time.Duration
	GuestCartTTL      time.Duration
	RecentlyViewedTTL time.Duration
}

// DailyTrigger submits the housekeeping jobs once a day at the configured time
type DailyTrigger struct {
	config    DailyTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDailyTrigger creates a trigger feeding scheduler
func NewDailyTrigger(config DailyTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *DailyTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &DailyTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the check loop
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		return nil
	}
	d.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Housekeeping trigger started",
		zap.Int("hour", d.config.Hour),
		zap.Int("minute", d.config.Minute),
		zap.Duration("check_interval", d.config.CheckInterval),
	)
	return nil
}

// Stop stops the check loop
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Housekeeping trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DailyTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndTrigger(d.now())
		}
	}
}

// shouldRun reports whether now is the configured minute of a day not yet handled
func (d *DailyTrigger) shouldRun(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRunDate == now.Format(time.DateOnly) {
		return false
	}
	return now.Hour() == d.config.Hour && now.Minute() == d.config.Minute
}

func (d *DailyTrigger) checkAndTrigger(now time.Time) {
	if !d.shouldRun(now) {
		return
	}
	d.mu.Lock()
	d.lastRunDate = now.Format(time.DateOnly)
	d.mu.Unlock()

	d.logger.Info("Triggering daily housekeeping")
	if err := d.Submit(now); err != nil {
		d.logger.Error("Failed to schedule housekeeping", zap.Error(err))
	}
}

// Submit queues every housekeeping job with cutoffs relative to now
func (d *DailyTrigger) Submit(now time.Time) error {
	retries := d.scheduler.config.RetryAttempts
	jobs := []*Job{
		NewJob(JobKindPruneGuestCarts, now.Add(-d.config.GuestCartTTL), retries),
		NewJob(JobKindPruneRecentlyViewed, now.Add(-d.config.RecentlyViewedTTL), retries),
	}
	for _, job := range jobs {
		if err := d.scheduler.SubmitJob(job); err != nil {
			return err
		}
	}
	return nil
}
