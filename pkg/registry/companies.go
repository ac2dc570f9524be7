package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
)

// DefaultCompaniesBaseURL is the public companies-register API.
const DefaultCompaniesBaseURL = "https://api.company-information.service.gov.uk"

// categories used when listing filings by type.
const (
	categoryConfirmationStatement = "confirmation-statement"
	filingHistoryPageSize         = "100"
)

// CompaniesClient reads company data from the companies register.
type CompaniesClient struct {
	gw     *gateway
	logger *zap.Logger
}

// NewCompaniesClient creates a companies-register client.
func NewCompaniesClient(opts Options) *CompaniesClient {
	opts.applyDefaults(DefaultCompaniesBaseURL)
	return &CompaniesClient{
		gw:     newGateway(opts, nil, opts.APIKey),
		logger: opts.Logger.Named("registry.companies"),
	}
}

// Profile fetches the company profile.
func (c *CompaniesClient) Profile(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	var profile CompanyProfile
	if err := c.gw.getJSON(ctx, "/company/"+companyNumber, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Officers fetches the company's officer appointments.
func (c *CompaniesClient) Officers(ctx context.Context, companyNumber string) (*OfficerList, error) {
	var officers OfficerList
	if err := c.gw.getJSON(ctx, "/company/"+companyNumber+"/officers", nil, &officers); err != nil {
		return nil, err
	}
	return &officers, nil
}

// PSCs fetches the persons-with-significant-control register entries.
func (c *CompaniesClient) PSCs(ctx context.Context, companyNumber string) (*PSCList, error) {
	var pscs PSCList
	params := map[string]string{"items_per_page": filingHistoryPageSize}
	if err := c.gw.getJSON(ctx, "/company/"+companyNumber+"/persons-with-significant-control", params, &pscs); err != nil {
		return nil, err
	}
	return &pscs, nil
}

// Charges fetches registered charges against the company.
func (c *CompaniesClient) Charges(ctx context.Context, companyNumber string) (*ChargeList, error) {
	var charges ChargeList
	if err := c.gw.getJSON(ctx, "/company/"+companyNumber+"/charges", nil, &charges); err != nil {
		return nil, err
	}
	return &charges, nil
}

// FilingHistory fetches the filing history, optionally filtered by category.
func (c *CompaniesClient) FilingHistory(ctx context.Context, companyNumber, category string) (*FilingHistory, error) {
	params := map[string]string{"items_per_page": filingHistoryPageSize}
	if category != "" {
		params["category"] = category
	}
	var history FilingHistory
	if err := c.gw.getJSON(ctx, "/company/"+companyNumber+"/filing-history", params, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// FilingDetail fetches one filing-history entry, which carries the
// document_metadata link absent from the list response.
func (c *CompaniesClient) FilingDetail(ctx context.Context, companyNumber, transactionID string) (*FilingItem, error) {
	var detail FilingItem
	path := "/company/" + companyNumber + "/filing-history/" + transactionID
	if err := c.gw.getJSON(ctx, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Search searches the register by company name.
func (c *CompaniesClient) Search(ctx context.Context, name string, itemsPerPage int) (*CompanySearchResult, error) {
	if strings.TrimSpace(name) == "" {
		return &CompanySearchResult{}, nil
	}
	if itemsPerPage <= 0 {
		itemsPerPage = 5
	}
	params := map[string]string{
		"q":              strings.TrimSpace(name),
		"items_per_page": fmt.Sprintf("%d", itemsPerPage),
	}
	var result CompanySearchResult
	if err := c.gw.getJSON(ctx, "/search/companies", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FilingsOfType lists filings of the given type with resolved document IDs,
// most recent first. Confirmation statements and annual returns are listed
// from the confirmation-statement category; incorporation filings need the
// unfiltered history.
func (c *CompaniesClient) FilingsOfType(ctx context.Context, companyNumber string, types ...models.FilingType) ([]models.Filing, error) {
	category := categoryConfirmationStatement
	for _, t := range types {
		if t == models.FilingTypeIN01 || t == models.FilingTypeNEWINC {
			category = ""
			break
		}
	}

	history, err := c.FilingHistory(ctx, companyNumber, category)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[string(t)] = true
	}

	var filings []models.Filing
	for _, item := range history.Items {
		if !wanted[item.Type] {
			continue
		}
		if item.TransactionID == "" {
			continue
		}

		detail, err := c.FilingDetail(ctx, companyNumber, item.TransactionID)
		if err != nil {
			c.logger.Warn("filing detail unavailable",
				zap.String("company_number", companyNumber),
				zap.String("transaction_id", item.TransactionID),
				zap.Error(err))
			continue
		}

		docID := detail.Links.DocumentID()
		if docID == "" {
			continue
		}

		filings = append(filings, models.Filing{
			CompanyNumber: companyNumber,
			TransactionID: item.TransactionID,
			Type:          models.FilingType(item.Type),
			Date:          item.Date,
			Description:   item.Description,
			DocumentID:    docID,
		})
	}

	// Most recent first; on equal dates prefer statements with updates,
	// they are the ones that actually carry shareholder changes.
	sort.SliceStable(filings, func(i, j int) bool {
		if filings[i].Date != filings[j].Date {
			return filings[i].Date > filings[j].Date
		}
		return hasUpdates(filings[i].Description) && !hasUpdates(filings[j].Description)
	})

	return filings, nil
}

func hasUpdates(description string) bool {
	lower := strings.ToLower(description)
	return strings.Contains(lower, "with updates") ||
		(strings.Contains(lower, "updates") && !strings.Contains(lower, "no updates"))
}
