package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobKind is returned for a job no executor handles
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidSchedule is returned for a schedule outside 0-59 minutes or 0-23 hours
	ErrInvalidSchedule = errors.New("invalid schedule")
)
