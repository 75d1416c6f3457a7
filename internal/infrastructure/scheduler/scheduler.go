// Package scheduler runs background housekeeping jobs on a small worker pool.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind names the work a job performs
type JobKind string

const (
	JobKindPruneGuestCarts     JobKind = "PRUNE_GUEST_CARTS"
	JobKindPruneRecentlyViewed JobKind = "PRUNE_RECENTLY_VIEWED"
)

// AllJobKinds returns every housekeeping job kind
func AllJobKinds() []JobKind {
	return []JobKind{JobKindPruneGuestCarts, JobKindPruneRecentlyViewed}
}

// Job is one unit of background work. Cutoff bounds what the job may delete.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Cutoff      time.Time
	Status      JobStatus
	Error       string
	Affected    int64
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a pending job
func NewJob(kind JobKind, cutoff time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       kind,
		Cutoff:     cutoff,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(affected int64) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.Affected = affected
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor runs jobs and reports how many rows they touched
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) (int64, error)
}

// Config holds worker pool configuration
type Config struct {
	Workers       int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// OnDone observes finished jobs; called from worker goroutines
	OnDone func(job Job)
}

// DefaultConfig returns default worker pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:       2,
		JobTimeout:    10 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Minute,
	}
}

// Scheduler runs submitted jobs on a fixed pool of workers
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, 100),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are accepting jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil {
		wait := time.Until(*job.NextRetryAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
	)
	log.Info("Processing job", zap.Time("cutoff", job.Cutoff))

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	affected, err := s.executor.Execute(jobCtx, job)
	cancel()

	if err != nil {
		job.Fail(err.Error())
		log.Error("Job failed", zap.Int("retry_count", job.RetryCount), zap.Error(err))

		if job.ShouldRetry() && ctx.Err() == nil {
			job.ScheduleRetry(s.config.RetryDelay)
			if submitErr := s.SubmitJob(job); submitErr != nil {
				log.Warn("Failed to re-queue job for retry", zap.Error(submitErr))
				s.done(job)
			}
			return
		}
		s.done(job)
		return
	}

	job.Complete(affected)
	log.Info("Job completed", zap.Int64("affected", affected))
	s.done(job)
}

func (s *Scheduler) done(job *Job) {
	if s.config.OnDone != nil {
		s.config.OnDone(*job)
	}
}
