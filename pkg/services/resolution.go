package services

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

// defaultFilingWindow caps how many filings of one type are inspected, so a
// company with decades of history does not cost dozens of downloads.
const defaultFilingWindow = 10

// ShareholderResolution is the outcome of resolving one company's
// shareholders across filings and the control register.
type ShareholderResolution struct {
	Regular     []models.Shareholder
	Corporate   []models.Shareholder
	TotalShares int64
	Status      models.ExtractionStatus
}

// All returns regular and corporate shareholders in one slice.
func (r *ShareholderResolution) All() []models.Shareholder {
	out := make([]models.Shareholder, 0, len(r.Regular)+len(r.Corporate))
	out = append(out, r.Regular...)
	out = append(out, r.Corporate...)
	return out
}

// ShareholderResolver recovers a company's shareholders by walking statutory
// filing types in fixed priority order, extracting from each filing's
// document until one yields a non-empty list. The most recent filing with
// data wins; when no filing type yields anything the control register is
// consulted as a fallback.
type ShareholderResolver struct {
	companies *registry.CompaniesClient
	documents *registry.DocumentClient
	extractor *DocumentExtractor
	window    int
	logger    *zap.Logger
}

// NewShareholderResolver creates a resolver. A non-positive window falls back
// to the default.
func NewShareholderResolver(companies *registry.CompaniesClient, documents *registry.DocumentClient, extractor *DocumentExtractor, window int, logger *zap.Logger) *ShareholderResolver {
	if window <= 0 {
		window = defaultFilingWindow
	}
	return &ShareholderResolver{
		companies: companies,
		documents: documents,
		extractor: extractor,
		window:    window,
		logger:    logger.Named("resolution"),
	}
}

// Resolve runs the filing-type fallback chain for one company. The returned
// resolution always carries a status from the extraction taxonomy; a company
// with no recoverable shareholders is a result, not an error.
func (r *ShareholderResolver) Resolve(ctx context.Context, companyNumber string) (*ShareholderResolution, error) {
	outcomes := make(map[models.FilingType]models.SourceOutcome, len(models.FilingTypePriority))

	for _, filingType := range models.FilingTypePriority {
		found, shareholders, err := r.processFilingType(ctx, companyNumber, filingType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("filing type processing failed",
				zap.String("company_number", companyNumber),
				zap.String("filing_type", string(filingType)),
				zap.Error(err))
			outcomes[filingType] = models.SourceOutcome{}
			continue
		}
		outcomes[filingType] = models.SourceOutcome{Found: found, HasShareholders: len(shareholders) > 0}

		if len(shareholders) > 0 {
			r.logger.Info("shareholders recovered from filings",
				zap.String("company_number", companyNumber),
				zap.String("filing_type", string(filingType)),
				zap.Int("count", len(shareholders)))
			return buildResolution(shareholders, models.ExtractionStatusFound), nil
		}
	}

	status := models.FailureStatus(
		outcomes[models.FilingTypeCS01],
		outcomes[models.FilingTypeAR01],
		outcomes[models.FilingTypeIN01],
	)
	r.logger.Info("no shareholders found in any filing type",
		zap.String("company_number", companyNumber),
		zap.String("status", string(status)))

	return &ShareholderResolution{Status: status}, nil
}

// processFilingType inspects up to the window's worth of filings of one type
// and returns the first non-empty extraction.
func (r *ShareholderResolver) processFilingType(ctx context.Context, companyNumber string, filingType models.FilingType) (bool, []models.Shareholder, error) {
	types := []models.FilingType{filingType}
	if filingType == models.FilingTypeIN01 {
		types = append(types, models.FilingTypeNEWINC)
	}

	filings, err := r.companies.FilingsOfType(ctx, companyNumber, types...)
	if err != nil {
		return false, nil, err
	}
	if len(filings) == 0 {
		return false, nil, nil
	}

	window := filings
	if len(window) > r.window {
		window = window[:r.window]
	}

	for i, filing := range window {
		shareholders, err := r.extractFromFiling(ctx, filing)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil, ctx.Err()
			}
			r.logger.Warn("filing extraction failed, trying next",
				zap.String("company_number", companyNumber),
				zap.String("filing_type", string(filingType)),
				zap.String("document_id", filing.DocumentID),
				zap.Int("position", i+1),
				zap.Error(err))
			continue
		}
		if len(shareholders) > 0 {
			for j := range shareholders {
				shareholders[j].Source = string(filingType)
			}
			return true, shareholders, nil
		}
	}

	return true, nil, nil
}

func (r *ShareholderResolver) extractFromFiling(ctx context.Context, filing models.Filing) ([]models.Shareholder, error) {
	pdfData, err := r.documents.DownloadDocument(ctx, filing.DocumentID)
	if err != nil {
		return nil, err
	}
	return r.extractor.ExtractShareholders(ctx, pdfData)
}

// buildResolution filters zero-share holders, computes percentages over the
// survivors, and splits them into regular and corporate groups.
func buildResolution(shareholders []models.Shareholder, status models.ExtractionStatus) *ShareholderResolution {
	withPercentages, total := ComputePercentages(shareholders)
	regular, corporate := SplitParentCompanies(withPercentages)
	return &ShareholderResolution{
		Regular:     regular,
		Corporate:   corporate,
		TotalShares: total,
		Status:      status,
	}
}

// ComputePercentages drops zero-share holders and assigns each survivor its
// share of the remaining total, rounded to two decimals. Holders without a
// known share count (control-register entries) pass through untouched.
func ComputePercentages(shareholders []models.Shareholder) ([]models.Shareholder, int64) {
	var total int64
	for _, sh := range shareholders {
		if sh.SharesKnown {
			total += sh.SharesHeld
		}
	}

	out := make([]models.Shareholder, 0, len(shareholders))
	for _, sh := range shareholders {
		if sh.SharesKnown && sh.SharesHeld == 0 {
			continue
		}
		if sh.SharesKnown && total > 0 {
			sh.Percentage = round2(float64(sh.SharesHeld) / float64(total) * 100)
		}
		out = append(out, sh)
	}
	return out, total
}

// NormalizeSingleHolderBand promotes a sole holder in the top control band to
// exactly 100%. A single 75-100% controller has no other holders to share
// with, so the midpoint would understate the position.
func NormalizeSingleHolderBand(shareholders []models.Shareholder) []models.Shareholder {
	if len(shareholders) == 1 && isTopBand(shareholders[0].PercentageBand) {
		shareholders[0].Percentage = 100.0
	}
	return shareholders
}

func isTopBand(band string) bool {
	return len(band) >= 6 && band[:6] == "75-100"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
