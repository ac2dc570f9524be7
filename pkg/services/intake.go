package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/repositories"
)

// IntakeResult is the outcome of registering an entity for enrichment.
// Record is nil when resolution needs manual review; Resolution always
// carries the match details and ranked candidates.
type IntakeResult struct {
	Record     *models.EntityRecord     `json:"record,omitempty"`
	Resolution *models.EntityResolution `json:"resolution"`
}

// IntakeService turns raw entity names into persisted enrichment records.
// Names that resolve automatically are stored and queued; ambiguous names
// come back with candidates and no record.
type IntakeService struct {
	resolver  *EntityResolver
	repo      repositories.EntityRepository
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewIntakeService creates a new intake service.
func NewIntakeService(resolver *EntityResolver, repo repositories.EntityRepository, scheduler *Scheduler, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		resolver:  resolver,
		repo:      repo,
		scheduler: scheduler,
		logger:    logger.Named("intake"),
	}
}

// Register resolves a name against the public registries and, when the
// match is unambiguous, creates a pending record and enqueues it for
// enrichment.
func (s *IntakeService) Register(ctx context.Context, name string) (*IntakeResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	resolution, err := s.resolver.ResolveEntity(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", name, err)
	}

	if resolution.Status == models.ResolutionStatusManualRequired {
		s.logger.Info("Resolution needs manual review",
			zap.String("input_name", name),
			zap.Int("candidates", len(resolution.Candidates)))
		return &IntakeResult{Resolution: resolution}, nil
	}

	record := recordFromResolution(name, resolution.Resolved)
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store entity record: %w", err)
	}
	s.scheduler.Enqueue(record.ID)

	s.logger.Info("Entity registered",
		zap.String("id", record.ID.String()),
		zap.String("input_name", name),
		zap.String("registry_kind", string(record.RegistryKind)),
		zap.String("registry_id", record.RegistryID()))

	return &IntakeResult{Record: record, Resolution: resolution}, nil
}

func recordFromResolution(name string, resolved *models.ResolutionCandidate) *models.EntityRecord {
	record := &models.EntityRecord{
		InputName: name,
		Status:    models.EnrichmentStatusPending,
	}
	if resolved == nil {
		return record
	}
	if resolved.Registry == registryCharities {
		record.RegistryKind = models.RegistryKindCharity
		if resolved.CharityNumber != "" {
			n := resolved.CharityNumber
			record.CharityNumber = &n
		}
		return record
	}
	record.RegistryKind = models.RegistryKindCompany
	if resolved.CompanyNumber != "" {
		n := resolved.CompanyNumber
		record.CompanyNumber = &n
	}
	return record
}
