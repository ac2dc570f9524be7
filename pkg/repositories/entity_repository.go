// Package repositories provides data access over PostgreSQL.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scrutinise/ownership-engine/pkg/apperrors"
	"github.com/scrutinise/ownership-engine/pkg/database"
	"github.com/scrutinise/ownership-engine/pkg/models"
)

// EntityRepository defines the persistence boundary for enrichment records.
type EntityRepository interface {
	// Create inserts a new entity record in status pending.
	Create(ctx context.Context, entity *models.EntityRecord) error

	// GetByID retrieves an entity record by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.EntityRecord, error)

	// List retrieves entity records, optionally filtered by status,
	// newest first.
	List(ctx context.Context, status *models.EnrichmentStatus, limit, offset int) ([]*models.EntityRecord, error)

	// TryStart atomically transitions a record to running. Returns
	// apperrors.ErrAlreadyActive when the record is not in a startable
	// status, which keeps concurrent workers from double-processing.
	TryStart(ctx context.Context, id uuid.UUID) error

	// UpdateStatus sets the record status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.EnrichmentStatus) error

	// RecordFailure stores the error and retry count alongside the new status.
	RecordFailure(ctx context.Context, id uuid.UUID, status models.EnrichmentStatus, retryCount int, lastError string) error

	// SaveResult persists the enrichment bundle and marks the record done.
	SaveResult(ctx context.Context, id uuid.UUID, bundle *models.EnrichmentBundle) error

	// RequeueAbandoned moves records left running by a previous process
	// back to queued. Returns the number of records requeued.
	RequeueAbandoned(ctx context.Context) (int64, error)
}

// entityRepository implements EntityRepository using PostgreSQL.
type entityRepository struct {
	db *database.DB
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *database.DB) EntityRepository {
	return &entityRepository{db: db}
}

const entityColumns = `id, input_name, registry_kind, company_number, charity_number,
	status, retry_count, last_error, bundle, created_at, updated_at`

func (r *entityRepository) Create(ctx context.Context, entity *models.EntityRecord) error {
	now := time.Now()
	entity.CreatedAt = now
	entity.UpdatedAt = now
	if entity.Status == "" {
		entity.Status = models.EnrichmentStatusPending
	}

	query := `
		INSERT INTO entities (input_name, registry_kind, company_number, charity_number, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		entity.InputName,
		entity.RegistryKind,
		entity.CompanyNumber,
		entity.CharityNumber,
		entity.Status,
		entity.RetryCount,
		entity.CreatedAt,
		entity.UpdatedAt,
	).Scan(&entity.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create entity: %w", err)
	}

	return nil
}

func (r *entityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EntityRecord, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`
	return r.scanEntity(r.db.QueryRow(ctx, query, id))
}

func (r *entityRepository) List(ctx context.Context, status *models.EnrichmentStatus, limit, offset int) ([]*models.EntityRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + entityColumns + ` FROM entities`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.EntityRecord
	for rows.Next() {
		entity, err := r.scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *entityRepository) TryStart(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE entities
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)`

	tag, err := r.db.Exec(ctx, query, models.EnrichmentStatusRunning, id, models.EnrichmentStatusPending, models.EnrichmentStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to start entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the record is gone or another worker holds it.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrAlreadyActive
	}
	return nil
}

func (r *entityRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EnrichmentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE entities SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update entity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *entityRepository) RecordFailure(ctx context.Context, id uuid.UUID, status models.EnrichmentStatus, retryCount int, lastError string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE entities
		SET status = $1, retry_count = $2, last_error = $3, updated_at = now()
		WHERE id = $4`, status, retryCount, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to record entity failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *entityRepository) SaveResult(ctx context.Context, id uuid.UUID, bundle *models.EnrichmentBundle) error {
	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE entities
		SET status = $1, bundle = $2, last_error = NULL, updated_at = now()
		WHERE id = $3`, models.EnrichmentStatusDone, bundleJSON, id)
	if err != nil {
		return fmt.Errorf("failed to save entity result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *entityRepository) RequeueAbandoned(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE entities SET status = $1, updated_at = now() WHERE status = $2`,
		models.EnrichmentStatusQueued, models.EnrichmentStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue abandoned entities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanEntity scans one entity row.
func (r *entityRepository) scanEntity(row pgx.Row) (*models.EntityRecord, error) {
	var entity models.EntityRecord
	var bundleJSON []byte

	err := row.Scan(
		&entity.ID,
		&entity.InputName,
		&entity.RegistryKind,
		&entity.CompanyNumber,
		&entity.CharityNumber,
		&entity.Status,
		&entity.RetryCount,
		&entity.LastError,
		&bundleJSON,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	if len(bundleJSON) > 0 {
		var bundle models.EnrichmentBundle
		if err := json.Unmarshal(bundleJSON, &bundle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bundle: %w", err)
		}
		entity.Bundle = &bundle
	}

	return &entity, nil
}
