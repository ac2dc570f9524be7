package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Registry Kind
// ============================================================================

// RegistryKind identifies which public registry an entity resolved against.
type RegistryKind string

const (
	RegistryKindCompany RegistryKind = "company"
	RegistryKindCharity RegistryKind = "charity"
)

// ============================================================================
// Enrichment Status
// ============================================================================

// EnrichmentStatus represents the per-record scheduler state.
// State machine:
//
//	pending/queued → running → {done | skipped | failed}
//
//	failed re-enters pending while retry budget remains.
type EnrichmentStatus string

const (
	EnrichmentStatusPending EnrichmentStatus = "pending"
	EnrichmentStatusQueued  EnrichmentStatus = "queued"
	EnrichmentStatusRunning EnrichmentStatus = "running"
	EnrichmentStatusDone    EnrichmentStatus = "done"
	EnrichmentStatusSkipped EnrichmentStatus = "skipped"
	EnrichmentStatusFailed  EnrichmentStatus = "failed"
)

// ValidEnrichmentStatuses contains all valid status values.
var ValidEnrichmentStatuses = []EnrichmentStatus{
	EnrichmentStatusPending,
	EnrichmentStatusQueued,
	EnrichmentStatusRunning,
	EnrichmentStatusDone,
	EnrichmentStatusSkipped,
	EnrichmentStatusFailed,
}

// IsValidEnrichmentStatus checks if the given status is valid.
func IsValidEnrichmentStatus(s EnrichmentStatus) bool {
	for _, v := range ValidEnrichmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanStart reports whether a record in this status may begin a new run.
// Running, done, skipped and failed short-circuit re-entry: at most one
// active execution per record.
func (s EnrichmentStatus) CanStart() bool {
	switch s {
	case EnrichmentStatusRunning, EnrichmentStatusDone, EnrichmentStatusSkipped, EnrichmentStatusFailed:
		return false
	default:
		// pending, queued, or unset
		return true
	}
}

// IsTerminal returns true for states no automatic transition leaves.
func (s EnrichmentStatus) IsTerminal() bool {
	return s == EnrichmentStatusDone || s == EnrichmentStatusSkipped || s == EnrichmentStatusFailed
}

// ============================================================================
// Entity Record
// ============================================================================

// EntityRecord is one subject to enrich. Status, retry count and last error
// are mutated only by the scheduler; artifacts attach on success. The
// persisted row is the source of truth for recovery after a restart.
type EntityRecord struct {
	ID            uuid.UUID        `json:"id"`
	InputName     string           `json:"input_name"`
	RegistryKind  RegistryKind     `json:"registry_kind"`
	CompanyNumber *string          `json:"company_number,omitempty"`
	CharityNumber *string          `json:"charity_number,omitempty"`
	Status        EnrichmentStatus `json:"status"`
	RetryCount    int              `json:"retry_count"`
	LastError     *string          `json:"last_error,omitempty"`
	Bundle        *EnrichmentBundle `json:"bundle,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// RegistryID returns the resolved registry identifier for the record's kind.
func (e *EntityRecord) RegistryID() string {
	switch e.RegistryKind {
	case RegistryKindCharity:
		if e.CharityNumber != nil {
			return *e.CharityNumber
		}
	default:
		if e.CompanyNumber != nil {
			return *e.CompanyNumber
		}
	}
	return ""
}
