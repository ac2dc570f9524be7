package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/apperrors"
	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/repositories"
	"github.com/scrutinise/ownership-engine/pkg/workqueue"
)

const (
	defaultMaxEnrichRetries = 3
	defaultRetryBase        = 60 * time.Second

	recoveryPageSize = 100
)

// Scheduler drives enrichment runs through the bounded work queue. Each run
// is guarded by an atomic status transition in the store, so a record is
// enriched by at most one worker at a time even across processes. Failures
// are retried with exponential backoff up to a budget; exhaustion marks the
// record permanently failed with its last error retained.
type Scheduler struct {
	repo       repositories.EntityRepository
	enricher   Enricher
	queue      *workqueue.Queue
	maxRetries int
	retryBase  time.Duration
	logger     *zap.Logger
}

// Enricher produces an enrichment bundle for a record. Satisfied by
// *EnrichmentService.
type Enricher interface {
	Enrich(ctx context.Context, record *models.EntityRecord) (*models.EnrichmentBundle, error)
}

// NewScheduler creates a scheduler. Non-positive maxRetries or retryBase
// fall back to the defaults (3 retries, 60s base).
func NewScheduler(repo repositories.EntityRepository, enricher Enricher, queue *workqueue.Queue, maxRetries int, retryBase time.Duration, logger *zap.Logger) *Scheduler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxEnrichRetries
	}
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	return &Scheduler{
		repo:       repo,
		enricher:   enricher,
		queue:      queue,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		logger:     logger.Named("scheduler"),
	}
}

// Enqueue schedules an enrichment run for the record. Enqueueing an already
// active or finished record is harmless; the status guard rejects the run
// when the task fires.
func (s *Scheduler) Enqueue(id uuid.UUID) {
	s.queue.Enqueue(s.newTask(id))
}

// RetryDelay returns the backoff before the nth retry (1-based):
// base x 2^(n-1).
func (s *Scheduler) RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return s.retryBase * time.Duration(1<<(retryCount-1))
}

// Recover requeues records a previous process left running and schedules
// every queued record again. Called once at startup; persisted state is the
// source of truth after a restart.
func (s *Scheduler) Recover(ctx context.Context) error {
	requeued, err := s.repo.RequeueAbandoned(ctx)
	if err != nil {
		return fmt.Errorf("requeueing abandoned records: %w", err)
	}
	if requeued > 0 {
		s.logger.Info("requeued abandoned records", zap.Int64("count", requeued))
	}

	queued := models.EnrichmentStatusQueued
	scheduled := 0
	for offset := 0; ; offset += recoveryPageSize {
		records, err := s.repo.List(ctx, &queued, recoveryPageSize, offset)
		if err != nil {
			return fmt.Errorf("listing queued records: %w", err)
		}
		for _, record := range records {
			s.Enqueue(record.ID)
			scheduled++
		}
		if len(records) < recoveryPageSize {
			break
		}
	}
	if scheduled > 0 {
		s.logger.Info("rescheduled queued records", zap.Int("count", scheduled))
	}
	return nil
}

func (s *Scheduler) newTask(id uuid.UUID) *enrichTask {
	return &enrichTask{
		BaseTask:  workqueue.NewBaseTask(fmt.Sprintf("enrich-%s", id)),
		scheduler: s,
		entityID:  id,
	}
}

// enrichTask is one enrichment attempt for one record.
type enrichTask struct {
	workqueue.BaseTask
	scheduler *Scheduler
	entityID  uuid.UUID
}

// Execute runs the attempt. Outcomes are persisted here; the queue only sees
// an error for infrastructure failures it cannot act on.
func (t *enrichTask) Execute(ctx context.Context, enqueuer workqueue.TaskEnqueuer) error {
	return t.scheduler.runOne(ctx, t.entityID, enqueuer)
}

func (s *Scheduler) runOne(ctx context.Context, id uuid.UUID, enqueuer workqueue.TaskEnqueuer) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("record vanished before enrichment", zap.String("entity_id", id.String()))
			return nil
		}
		// The record has not been claimed yet, so a plain delayed
		// re-submission is enough; no retry count to consult without
		// the row.
		s.logger.Warn("loading record failed, requeueing",
			zap.String("entity_id", id.String()),
			zap.Error(err))
		enqueuer.EnqueueAfter(s.newTask(id), s.retryBase)
		return nil
	}

	if record.RegistryID() == "" {
		s.logger.Info("record has no registry number, skipping",
			zap.String("entity_id", id.String()),
			zap.String("input_name", record.InputName))
		return s.repo.UpdateStatus(ctx, id, models.EnrichmentStatusSkipped)
	}

	if err := s.repo.TryStart(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyActive) {
			s.logger.Info("record already active or finished, skipping",
				zap.String("entity_id", id.String()),
				zap.String("status", string(record.Status)))
			return nil
		}
		// A failed claim leaves the row status unknown; handleFailure
		// resets it to pending and schedules the delayed retry.
		return s.handleFailure(ctx, record, fmt.Errorf("starting record: %w", err), enqueuer)
	}

	bundle, err := s.enricher.Enrich(ctx, record)
	if err != nil {
		return s.handleFailure(ctx, record, err, enqueuer)
	}

	if err := s.repo.SaveResult(ctx, id, bundle); err != nil {
		// The row is still running at this point; falling through to
		// the queue would strand it there until a restart.
		return s.handleFailure(ctx, record, fmt.Errorf("saving result: %w", err), enqueuer)
	}
	return nil
}

// handleFailure stores the error and either schedules a delayed retry or
// marks the record permanently failed once the budget is spent.
func (s *Scheduler) handleFailure(ctx context.Context, record *models.EntityRecord, cause error, enqueuer workqueue.TaskEnqueuer) error {
	retryCount := record.RetryCount + 1

	if retryCount > s.maxRetries {
		s.logger.Error("enrichment failed permanently",
			zap.String("entity_id", record.ID.String()),
			zap.Int("retry_count", record.RetryCount),
			zap.Error(cause))
		return s.repo.RecordFailure(ctx, record.ID, models.EnrichmentStatusFailed, record.RetryCount, cause.Error())
	}

	delay := s.RetryDelay(retryCount)
	s.logger.Warn("enrichment failed, scheduling retry",
		zap.String("entity_id", record.ID.String()),
		zap.Int("retry_count", retryCount),
		zap.Int("max_retries", s.maxRetries),
		zap.Duration("delay", delay),
		zap.Error(cause))

	if err := s.repo.RecordFailure(ctx, record.ID, models.EnrichmentStatusPending, retryCount, cause.Error()); err != nil {
		return fmt.Errorf("recording failure: %w", err)
	}

	enqueuer.EnqueueAfter(s.newTask(record.ID), delay)
	return nil
}
