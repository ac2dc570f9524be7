package registry

import (
	"context"

	"go.uber.org/zap"
)

// DefaultDocumentBaseURL is the public filing-document API.
const DefaultDocumentBaseURL = "https://document-api.company-information.service.gov.uk"

// DocumentClient downloads filed documents from the document API.
type DocumentClient struct {
	gw     *gateway
	logger *zap.Logger
}

// NewDocumentClient creates a document API client.
func NewDocumentClient(opts Options) *DocumentClient {
	opts.applyDefaults(DefaultDocumentBaseURL)
	return &DocumentClient{
		gw:     newGateway(opts, nil, opts.APIKey),
		logger: opts.Logger.Named("registry.document"),
	}
}

// DocumentMetadata fetches metadata for a filed document.
func (c *DocumentClient) DocumentMetadata(ctx context.Context, documentID string) (*DocumentMetadata, error) {
	var meta DocumentMetadata
	if err := c.gw.getJSON(ctx, "/document/"+documentID, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// DownloadDocument fetches the PDF content of a filed document.
// Content is never cached; filings easily exceed sane cache entry sizes.
func (c *DocumentClient) DownloadDocument(ctx context.Context, documentID string) ([]byte, error) {
	return c.gw.getRaw(ctx, "/document/"+documentID+"/content", "application/pdf")
}
