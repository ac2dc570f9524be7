package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

// EnrichmentService performs a full enrichment run for one entity record:
// registry snapshots, shareholder resolution, ownership tree, and run
// metrics, assembled into a bundle for durable storage.
type EnrichmentService struct {
	companies    *registry.CompaniesClient
	charities    *registry.CharityClient
	shareholders *ShareholderResolver
	trees        *TreeBuilder
	logger       *zap.Logger
}

// NewEnrichmentService wires the enrichment pipeline. The charity client may
// be nil; charity records then fail with a configuration error.
func NewEnrichmentService(companies *registry.CompaniesClient, charities *registry.CharityClient, shareholders *ShareholderResolver, trees *TreeBuilder, logger *zap.Logger) *EnrichmentService {
	return &EnrichmentService{
		companies:    companies,
		charities:    charities,
		shareholders: shareholders,
		trees:        trees,
		logger:       logger.Named("enrichment"),
	}
}

// Enrich runs the pipeline for one record and returns the bundle to persist.
func (s *EnrichmentService) Enrich(ctx context.Context, record *models.EntityRecord) (*models.EnrichmentBundle, error) {
	start := time.Now()

	var bundle *models.EnrichmentBundle
	var err error

	switch record.RegistryKind {
	case models.RegistryKindCharity:
		bundle, err = s.enrichCharity(ctx, record)
	default:
		bundle, err = s.enrichCompany(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	depth, entities := treeMetrics(bundle.OwnershipTree)
	bundle.Metadata = models.EnrichmentMetadata{
		DurationSeconds: round2(time.Since(start).Seconds()),
		TreeDepth:       depth,
		TotalEntities:   entities,
		CompletedAt:     time.Now().UTC(),
	}

	s.logger.Info("enrichment complete",
		zap.String("entity_id", record.ID.String()),
		zap.String("registry_id", record.RegistryID()),
		zap.String("status", string(bundle.ExtractionStatus)),
		zap.Int("tree_depth", depth),
		zap.Int("entities", entities),
		zap.Float64("duration_seconds", bundle.Metadata.DurationSeconds))

	return bundle, nil
}

func (s *EnrichmentService) enrichCompany(ctx context.Context, record *models.EntityRecord) (*models.EnrichmentBundle, error) {
	if record.CompanyNumber == nil || *record.CompanyNumber == "" {
		return nil, fmt.Errorf("record has no company number")
	}
	companyNumber := *record.CompanyNumber

	profile, err := s.companies.Profile(ctx, companyNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	bundle := &models.EnrichmentBundle{
		CompanyNumber:         companyNumber,
		RetrievedAt:           time.Now().UTC(),
		Profile:               mustMarshal(profile),
		RegularShareholders:   []models.Shareholder{},
		CorporateShareholders: []models.Shareholder{},
	}

	// Officer and charge snapshots are context for downstream screening;
	// their absence does not fail the run.
	if officers, err := s.companies.Officers(ctx, companyNumber); err != nil {
		s.logger.Warn("officers unavailable", zap.String("company_number", companyNumber), zap.Error(err))
	} else {
		bundle.Officers = mustMarshal(officers)
	}
	if charges, err := s.companies.Charges(ctx, companyNumber); err != nil {
		s.logger.Warn("charges unavailable", zap.String("company_number", companyNumber), zap.Error(err))
	} else {
		bundle.Charges = mustMarshal(charges)
	}

	pscs, err := s.companies.PSCs(ctx, companyNumber)
	if err != nil {
		s.logger.Warn("control register unavailable", zap.String("company_number", companyNumber), zap.Error(err))
		pscs = nil
	} else {
		bundle.PSCs = mustMarshal(pscs)
	}

	resolution, err := s.resolveShareholders(ctx, companyNumber, profile, pscs)
	if err != nil {
		return nil, err
	}

	bundle.RegularShareholders = resolution.Regular
	bundle.CorporateShareholders = resolution.Corporate
	bundle.TotalShares = resolution.TotalShares
	bundle.ExtractionStatus = resolution.Status

	if all := resolution.All(); len(all) > 0 {
		tree, err := s.trees.Build(ctx, companyNumber, profile.CompanyName, all)
		if err != nil {
			return nil, fmt.Errorf("building ownership tree: %w", err)
		}
		bundle.OwnershipTree = tree
		bundle.OwnershipChains = Flatten(tree)
	}

	return bundle, nil
}

// resolveShareholders runs the filings chain, routing guarantee companies
// straight to the control register and falling back to it when filings yield
// nothing.
func (s *EnrichmentService) resolveShareholders(ctx context.Context, companyNumber string, profile *registry.CompanyProfile, pscs *registry.PSCList) (*ShareholderResolution, error) {
	if IsGuaranteeCompany(profile) {
		s.logger.Info("guarantee company, using control register",
			zap.String("company_number", companyNumber),
			zap.String("company_type", profile.Type))
		converted := NormalizeSingleHolderBand(ShareholdersFromPSCs(pscs, true))
		regular, corporate := SplitParentCompanies(converted)
		return &ShareholderResolution{
			Regular:   regular,
			Corporate: corporate,
			Status:    models.ExtractionStatusFoundViaPSCGuarantee,
		}, nil
	}

	resolution, err := s.shareholders.Resolve(ctx, companyNumber)
	if err != nil {
		return nil, fmt.Errorf("resolving shareholders: %w", err)
	}
	if len(resolution.All()) > 0 {
		return resolution, nil
	}

	converted := NormalizeSingleHolderBand(ShareholdersFromPSCs(pscs, false))
	if len(converted) == 0 {
		return resolution, nil
	}

	s.logger.Info("no shareholders in filings, using control register fallback",
		zap.String("company_number", companyNumber),
		zap.Int("controllers", len(converted)))
	regular, corporate := SplitParentCompanies(converted)
	return &ShareholderResolution{
		Regular:   regular,
		Corporate: corporate,
		Status:    models.ExtractionStatusFoundViaPSCFallback,
	}, nil
}

// enrichCharity takes the trustee-bundle path: charity details, trustees and
// register documents, with no shareholder or tree stages.
func (s *EnrichmentService) enrichCharity(ctx context.Context, record *models.EntityRecord) (*models.EnrichmentBundle, error) {
	if s.charities == nil {
		return nil, fmt.Errorf("charity registry is not configured")
	}
	if record.CharityNumber == nil || *record.CharityNumber == "" {
		return nil, fmt.Errorf("record has no charity number")
	}
	charityNumber := *record.CharityNumber

	details, err := s.charities.CharityDetails(ctx, charityNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching charity details: %w", err)
	}

	bundle := &models.EnrichmentBundle{
		CharityNumber:         charityNumber,
		RetrievedAt:           time.Now().UTC(),
		Profile:               mustMarshal(details),
		RegularShareholders:   []models.Shareholder{},
		CorporateShareholders: []models.Shareholder{},
		ExtractionStatus:      models.ExtractionStatusNoDataFound,
	}

	trustees, err := s.charities.CharityTrustees(ctx, charityNumber)
	if err != nil {
		s.logger.Warn("trustees unavailable", zap.String("charity_number", charityNumber), zap.Error(err))
	}
	for _, t := range trustees {
		bundle.Trustees = append(bundle.Trustees, models.Trustee{Name: t.TrusteeName})
	}

	documents, err := s.charities.CharityDocuments(ctx, charityNumber)
	if err != nil {
		s.logger.Warn("charity documents unavailable", zap.String("charity_number", charityNumber), zap.Error(err))
	}
	for _, d := range documents {
		bundle.CharityDocuments = append(bundle.CharityDocuments, models.CharityDocument{
			Title: d.DocType,
			Date:  d.DocDate,
			URL:   d.DocLocation,
		})
	}

	return bundle, nil
}

// treeMetrics reports the deepest node depth and the number of resolved
// corporate entities in a tree.
func treeMetrics(tree *models.OwnershipNode) (depth, entities int) {
	if tree == nil {
		return 0, 0
	}
	var walk func(n *models.OwnershipNode)
	walk = func(n *models.OwnershipNode) {
		if n.Depth > depth {
			depth = n.Depth
		}
		if n.RegistryNumber != "" || n.Classification == models.ClassificationCorporate {
			entities++
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(tree)
	return depth, entities
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
