package workqueue

import (
	"golang.org/x/sync/semaphore"
)

// ConcurrencyStrategy controls how many tasks are allowed to run at once.
// The strategy tracks running tasks and decides whether a new one can start.
type ConcurrencyStrategy interface {
	// CanStart reserves a slot for a new task. It must not block; a false
	// return means the task stays pending until a slot frees up.
	CanStart() bool
	// OnComplete releases the slot reserved by CanStart.
	OnComplete()
}

// BoundedStrategy allows up to N tasks to run concurrently. Slots are taken
// with a non-blocking acquire so the queue's dispatch loop never stalls.
type BoundedStrategy struct {
	sem *semaphore.Weighted
}

// NewBoundedStrategy creates a strategy with a fixed concurrency limit.
// A limit below one is treated as one.
func NewBoundedStrategy(limit int) *BoundedStrategy {
	if limit < 1 {
		limit = 1
	}
	return &BoundedStrategy{sem: semaphore.NewWeighted(int64(limit))}
}

func (s *BoundedStrategy) CanStart() bool {
	return s.sem.TryAcquire(1)
}

func (s *BoundedStrategy) OnComplete() {
	s.sem.Release(1)
}

// SerializedStrategy runs one task at a time.
type SerializedStrategy struct {
	inner *BoundedStrategy
}

// NewSerializedStrategy creates a strategy that serializes all tasks.
func NewSerializedStrategy() *SerializedStrategy {
	return &SerializedStrategy{inner: NewBoundedStrategy(1)}
}

func (s *SerializedStrategy) CanStart() bool {
	return s.inner.CanStart()
}

func (s *SerializedStrategy) OnComplete() {
	s.inner.OnComplete()
}

var (
	_ ConcurrencyStrategy = (*BoundedStrategy)(nil)
	_ ConcurrencyStrategy = (*SerializedStrategy)(nil)
)
