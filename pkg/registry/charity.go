package registry

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

// DefaultCharityBaseURL is the charity-register REST API.
const DefaultCharityBaseURL = "https://api.charitycommission.gov.uk/register/api"

// subscriptionKeyHeader authenticates charity-register requests.
const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// CharityClient reads charity data from the charity register.
type CharityClient struct {
	gw     *gateway
	logger *zap.Logger
}

// NewCharityClient creates a charity-register client. The API key is sent
// as a subscription-key header on every request.
func NewCharityClient(opts Options) *CharityClient {
	opts.applyDefaults(DefaultCharityBaseURL)

	headers := map[string]string{}
	if opts.APIKey != "" {
		headers[subscriptionKeyHeader] = opts.APIKey
	}

	return &CharityClient{
		gw:     newGateway(opts, headers, ""),
		logger: opts.Logger.Named("registry.charity"),
	}
}

// SearchCharities searches the register by charity name.
func (c *CharityClient) SearchCharities(ctx context.Context, name string) ([]CharitySearchItem, error) {
	var items []CharitySearchItem
	if err := c.gw.getJSON(ctx, "/searchCharityName/"+url.PathEscape(name), nil, &items); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// CharityDetails fetches the detail record for a registered charity.
func (c *CharityClient) CharityDetails(ctx context.Context, charityNumber string) (*CharityDetails, error) {
	var details CharityDetails
	if err := c.gw.getJSON(ctx, "/allcharitydetailsV2/"+charityNumber+"/0", nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// CharityTrustees fetches the trustees of a registered charity.
func (c *CharityClient) CharityTrustees(ctx context.Context, charityNumber string) ([]CharityTrustee, error) {
	var trustees []CharityTrustee
	if err := c.gw.getJSON(ctx, "/charity/"+charityNumber+"/trustees", nil, &trustees); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return trustees, nil
}

// CharityDocuments fetches documents filed with the charity register.
func (c *CharityClient) CharityDocuments(ctx context.Context, charityNumber string) ([]CharityDocument, error) {
	var docs []CharityDocument
	if err := c.gw.getJSON(ctx, "/charity/"+charityNumber+"/documents", nil, &docs); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return docs, nil
}
