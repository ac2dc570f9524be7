package workqueue

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures queue-level retry behavior for transient task errors.
// Scheduler-level retries (with persisted retry counts) are layered on top by
// re-enqueueing a fresh delayed task; this config only covers errors a task
// reports as retryable via the Retryable method.
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration (cap)
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
// Backoff schedule: 2s, 4s, 8s, then 15s (capped).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     15 * time.Second,
		BackoffFactor:  2.0,
	}
}

// historyLimit caps how many finished-task snapshots the queue retains.
const historyLimit = 128

// retryableError is satisfied by errors that opt in to queue-level retry.
type retryableError interface {
	IsRetryable() bool
}

func isRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re) && re.IsRetryable()
}

// Queue manages task execution under a concurrency strategy. Tasks may carry
// an explicit fire time; a delayed task waits in the queue until its fire
// time passes and is then dispatched by the same bounded pool as immediate
// tasks, so no worker goroutine sleeps on its behalf.
type Queue struct {
	mu        sync.Mutex
	tasks     []*TaskState
	cancelled bool

	// Finished tasks are retired out of the active slice so a long-lived
	// queue does not grow with every run; a bounded history of their
	// snapshots remains available for introspection.
	history        []TaskSnapshot
	completedCount int
	failedCount    int

	// Concurrency control strategy
	strategy ConcurrencyStrategy

	// Retry configuration for transient errors
	retryConfig RetryConfig

	// done is closed when all tasks complete
	done chan struct{}
	// wg tracks running goroutines
	wg sync.WaitGroup

	// timer wakes the dispatcher for the earliest pending fire time
	timer *time.Timer

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithStrategy sets the concurrency strategy.
func WithStrategy(strategy ConcurrencyStrategy) QueueOption {
	return func(q *Queue) {
		if strategy != nil {
			q.strategy = strategy
		}
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(config RetryConfig) QueueOption {
	return func(q *Queue) {
		q.retryConfig = config
	}
}

// New creates a new work queue with the given options. The default strategy
// serializes all tasks.
func New(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:       make([]*TaskState, 0),
		strategy:    NewSerializedStrategy(),
		retryConfig: DefaultRetryConfig(),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task to the queue and attempts to start eligible tasks.
func (q *Queue) Enqueue(task Task) {
	q.enqueueAt(task, time.Time{})
}

// EnqueueAfter schedules a task that becomes eligible once the delay elapses.
func (q *Queue) EnqueueAfter(task Task, delay time.Duration) {
	fireAt := time.Time{}
	if delay > 0 {
		fireAt = time.Now().Add(delay)
	}
	q.enqueueAt(task, fireAt)
}

func (q *Queue) enqueueAt(task Task, fireAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		q.logger.Warn("queue cancelled, ignoring enqueue",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return
	}

	// Reset done channel if it was closed from a previous batch
	q.resetDoneLocked()

	state := NewTaskState(task)
	state.FireAt = fireAt
	q.tasks = append(q.tasks, state)

	q.logger.Info("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.Time("fire_at", fireAt))

	q.tryStartTasksLocked()
}

// tryStartTasksLocked checks constraints and starts eligible tasks.
// Must be called with lock held.
func (q *Queue) tryStartTasksLocked() {
	if q.cancelled {
		return
	}

	now := time.Now()
	var earliest time.Time

	for _, ts := range q.tasks {
		if ts.GetStatus() != TaskStatusPending {
			continue
		}

		if !ts.Eligible(now) {
			if earliest.IsZero() || ts.FireAt.Before(earliest) {
				earliest = ts.FireAt
			}
			continue
		}

		if !q.strategy.CanStart() {
			continue
		}

		ts.SetStatus(TaskStatusRunning)

		q.logger.Info("starting task",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))

		q.wg.Add(1)
		go q.runTask(ts)
	}

	q.armTimerLocked(earliest)
}

// armTimerLocked arranges a dispatcher wake-up for the earliest pending fire
// time. Must be called with lock held.
func (q *Queue) armTimerLocked(earliest time.Time) {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if earliest.IsZero() {
		return
	}
	wait := time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	q.timer = time.AfterFunc(wait, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.tryStartTasksLocked()
	})
}

// runTask executes a task with retry logic for transient errors.
func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	var lastErr error

	for attempt := 0; attempt <= q.retryConfig.MaxRetries; attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			backoff := q.calculateBackoff(attempt)
			q.logger.Info("retrying task after backoff",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", q.retryConfig.MaxRetries),
				zap.Duration("backoff", backoff))

			select {
			case <-q.ctx.Done():
				q.completeTaskFailure(ts, q.ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		err := ts.Task.Execute(q.ctx, q)

		if err == nil {
			q.completeTaskSuccess(ts)
			return
		}

		lastErr = err

		if errors.Is(err, context.Canceled) {
			break
		}

		if !isRetryable(err) {
			q.logger.Warn("non-retryable error, failing task immediately",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Error(err))
			break
		}

		if attempt >= q.retryConfig.MaxRetries {
			q.logger.Error("task failed after max retries",
				zap.String("task_id", ts.Task.ID()),
				zap.String("task_name", ts.Task.Name()),
				zap.Error(err))
			break
		}

		q.logger.Warn("retryable error encountered",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", q.retryConfig.MaxRetries),
			zap.Error(err))
	}

	q.completeTaskFailure(ts, lastErr)
}

// calculateBackoff computes the backoff duration for a retry attempt.
// Uses exponential backoff with jitter.
func (q *Queue) calculateBackoff(attempt int) time.Duration {
	backoff := float64(q.retryConfig.InitialBackoff) *
		math.Pow(q.retryConfig.BackoffFactor, float64(attempt-1))

	if backoff > float64(q.retryConfig.MaxBackoff) {
		backoff = float64(q.retryConfig.MaxBackoff)
	}

	// Jitter (±10%) to prevent thundering herd
	jitter := backoff * 0.1 * (rand.Float64()*2 - 1)

	return time.Duration(backoff + jitter)
}

// completeTaskSuccess marks a task as successfully completed.
func (q *Queue) completeTaskSuccess(ts *TaskState) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.OnComplete()

	ts.SetStatus(TaskStatusCompleted)
	q.completedCount++
	q.retireTaskLocked(ts)
	q.logger.Info("task completed",
		zap.String("task_id", ts.Task.ID()),
		zap.String("task_name", ts.Task.Name()))

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
		return
	}

	q.tryStartTasksLocked()
}

// completeTaskFailure marks a task as failed or cancelled.
func (q *Queue) completeTaskFailure(ts *TaskState, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.OnComplete()

	if errors.Is(err, context.Canceled) {
		ts.SetStatus(TaskStatusCancelled)
		q.logger.Info("task cancelled",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	} else {
		ts.SetStatus(TaskStatusFailed)
		ts.SetError(err)
		q.failedCount++
		q.logger.Error("task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Error(err))
	}
	q.retireTaskLocked(ts)

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
		return
	}

	q.tryStartTasksLocked()
}

// retireTaskLocked removes a terminal task from the active slice and records
// its snapshot in the bounded history. Must be called with lock held.
func (q *Queue) retireTaskLocked(ts *TaskState) {
	for i, cur := range q.tasks {
		if cur == ts {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			break
		}
	}
	q.history = append(q.history, ts.Snapshot())
	if len(q.history) > historyLimit {
		q.history = q.history[len(q.history)-historyLimit:]
	}
}

// allTasksDoneLocked returns true if no task is pending or running. Terminal
// tasks are retired as they finish, so the active slice only holds live work.
func (q *Queue) allTasksDoneLocked() bool {
	for _, ts := range q.tasks {
		status := ts.GetStatus()
		if status == TaskStatusPending || status == TaskStatusRunning {
			return false
		}
	}
	return true
}

// closeDoneLocked safely closes the done channel.
// Must be called with lock held.
func (q *Queue) closeDoneLocked() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

// resetDoneLocked recreates the done channel if it was closed, so the queue
// can be reused for multiple batches of work. Must be called with lock held.
func (q *Queue) resetDoneLocked() {
	select {
	case <-q.done:
		q.done = make(chan struct{})
	default:
	}
}

// Wait blocks until all tasks have reached a terminal state or the context
// is done.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
	}
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the queue: pending tasks are marked cancelled, running tasks
// get their context cancelled, and future enqueues are ignored.
func (q *Queue) Cancel() {
	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return
	}
	q.cancelled = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	pending := make([]*TaskState, 0, len(q.tasks))
	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusPending {
			pending = append(pending, ts)
		}
	}
	for _, ts := range pending {
		ts.SetStatus(TaskStatusCancelled)
		q.retireTaskLocked(ts)
	}
	q.closeDoneLocked()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// CompletedCount returns the number of tasks that finished successfully.
func (q *Queue) CompletedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completedCount
}

// FailedCount returns the number of tasks that failed.
func (q *Queue) FailedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.failedCount
}

// Snapshots returns recent finished tasks followed by every live task.
func (q *Queue) Snapshots() []TaskSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]TaskSnapshot, 0, len(q.history)+len(q.tasks))
	out = append(out, q.history...)
	for _, ts := range q.tasks {
		out = append(out, ts.Snapshot())
	}
	return out
}
