package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

const (
	sourceCompanies = "Companies House"
	sourceCharities = "Charity Commission (England & Wales)"

	registryCompanies = "CH"
	registryCharities = "CCEW"

	// autoResolveThreshold accepts the best candidate without a canonical
	// exact match when its similarity clears this score.
	autoResolveThreshold = 0.9

	companySearchPageSize = 20
)

// EntityResolver matches free-text entity names against the company and
// charity registries. It is used at record intake and by the ownership tree
// builder when chasing corporate shareholders.
type EntityResolver struct {
	companies *registry.CompaniesClient
	charities *registry.CharityClient
	logger    *zap.Logger
}

// NewEntityResolver creates a resolver over both registries. The charity
// client may be nil when no charity-register credentials are configured.
func NewEntityResolver(companies *registry.CompaniesClient, charities *registry.CharityClient, logger *zap.Logger) *EntityResolver {
	return &EntityResolver{
		companies: companies,
		charities: charities,
		logger:    logger.Named("resolver"),
	}
}

// ResolveEntity searches both registries for the input name and decides
// whether a single match can be accepted automatically. An exact match after
// canonicalisation resolves with confidence 1.0; failing that, a best
// candidate above the auto threshold resolves with its score; anything else
// returns the ranked candidate list for manual review.
func (r *EntityResolver) ResolveEntity(ctx context.Context, name string) (*models.EntityResolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	var combined []models.ResolutionCandidate
	var exact *models.ResolutionCandidate

	chCands, chExact, err := r.companyCandidates(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("company registry search: %w", err)
	}
	combined = append(combined, chCands...)
	exact = preferExact(exact, chExact)

	if r.charities != nil {
		ccCands, ccExact, err := r.charityCandidates(ctx, name)
		if err != nil {
			// Charity search failures downgrade to company-only resolution.
			r.logger.Warn("charity registry search failed",
				zap.String("name", name),
				zap.Error(err))
		} else {
			combined = append(combined, ccCands...)
			exact = preferExact(exact, ccExact)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Confidence != combined[j].Confidence {
			return combined[i].Confidence > combined[j].Confidence
		}
		return combined[i].EntityName < combined[j].EntityName
	})

	resolution := &models.EntityResolution{InputName: name}

	if exact != nil {
		resolution.Status = models.ResolutionStatusAuto
		resolution.MatchType = fmt.Sprintf("Exact after canonicalisation (%s)", exact.Source)
		resolution.Resolved = exact
		r.logger.Info("resolved entity",
			zap.String("name", name),
			zap.String("match", exact.EntityName),
			zap.String("registry", exact.Registry))
		return resolution, nil
	}

	if len(combined) > 0 && combined[0].Confidence > autoResolveThreshold {
		best := combined[0]
		resolution.Status = models.ResolutionStatusAuto
		resolution.MatchType = fmt.Sprintf("High-confidence match (%.3f)", best.Confidence)
		resolution.Resolved = &best
		r.logger.Info("resolved entity on high confidence",
			zap.String("name", name),
			zap.String("match", best.EntityName),
			zap.Float64("confidence", best.Confidence))
		return resolution, nil
	}

	resolution.Status = models.ResolutionStatusManualRequired
	resolution.Reason = "No exact canonicalised match found across registries"
	resolution.Candidates = combined
	return resolution, nil
}

// ResolveCompanyName resolves a corporate shareholder name against the
// company registry alone. An exact canonical match wins; otherwise the
// registry's top-ranked hit is taken. Returns nil when nothing matches.
func (r *EntityResolver) ResolveCompanyName(ctx context.Context, name string) (*models.ResolutionCandidate, error) {
	candidates, exact, err := r.companyCandidates(ctx, name)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return exact, nil
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]
	return &best, nil
}

func (r *EntityResolver) companyCandidates(ctx context.Context, name string) ([]models.ResolutionCandidate, *models.ResolutionCandidate, error) {
	result, err := r.companies.Search(ctx, name, companySearchPageSize)
	if err != nil {
		return nil, nil, err
	}

	canonicalInput := CanonicalName(name)
	now := time.Now().UTC()

	var candidates []models.ResolutionCandidate
	var canonicalMatches []models.ResolutionCandidate

	for _, item := range result.Items {
		canonical := CanonicalName(item.Title)
		cand := models.ResolutionCandidate{
			Source:        sourceCompanies,
			Registry:      registryCompanies,
			EntityName:    item.Title,
			CompanyNumber: item.CompanyNumber,
			EntityStatus:  item.CompanyStatus,
			Address:       item.AddressSnippet,
			Confidence:    round3(Similarity(canonicalInput, canonical)),
			SourceURL:     fmt.Sprintf("https://find-and-update.company-information.service.gov.uk/company/%s/", item.CompanyNumber),
			RetrievedAt:   now,
		}
		candidates = append(candidates, cand)
		if canonical == canonicalInput && canonical != "" {
			canonicalMatches = append(canonicalMatches, cand)
		}
	}

	return candidates, pickExact(name, canonicalMatches), nil
}

func (r *EntityResolver) charityCandidates(ctx context.Context, name string) ([]models.ResolutionCandidate, *models.ResolutionCandidate, error) {
	items, err := r.charities.SearchCharities(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	canonicalInput := CanonicalName(name)
	now := time.Now().UTC()

	var candidates []models.ResolutionCandidate
	var canonicalMatches []models.ResolutionCandidate

	for _, item := range items {
		canonical := CanonicalName(item.CharityName)
		cand := models.ResolutionCandidate{
			Source:        sourceCharities,
			Registry:      registryCharities,
			EntityName:    item.CharityName,
			CharityNumber: item.RegisteredCharityNumber,
			EntityStatus:  item.RegistrationStatus,
			Confidence:    round3(Similarity(canonicalInput, canonical)),
			SourceURL:     fmt.Sprintf("https://register-of-charities.charitycommission.gov.uk/charity-search/-/charity-details/%s", item.RegisteredCharityNumber),
			RetrievedAt:   now,
		}
		candidates = append(candidates, cand)
		if canonical == canonicalInput && canonical != "" {
			canonicalMatches = append(canonicalMatches, cand)
		}
	}

	return candidates, pickExact(name, canonicalMatches), nil
}

// pickExact chooses among candidates whose canonical names equal the input's.
// An exact case-insensitive pre-canonicalisation match wins; otherwise the
// longest registered name is preferred as the most specific.
func pickExact(inputName string, canonicalMatches []models.ResolutionCandidate) *models.ResolutionCandidate {
	if len(canonicalMatches) == 0 {
		return nil
	}

	for _, m := range canonicalMatches {
		if strings.EqualFold(m.EntityName, inputName) {
			m.Confidence = 1.0
			return &m
		}
	}

	sort.SliceStable(canonicalMatches, func(i, j int) bool {
		return len(canonicalMatches[i].EntityName) > len(canonicalMatches[j].EntityName)
	})
	best := canonicalMatches[0]
	best.Confidence = 1.0
	return &best
}

// preferExact keeps the exact match with the higher confidence.
func preferExact(current, candidate *models.ResolutionCandidate) *models.ResolutionCandidate {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.Confidence > current.Confidence {
		return candidate
	}
	return current
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
