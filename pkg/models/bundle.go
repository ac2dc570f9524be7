package models

import (
	"encoding/json"
	"time"
)

// Trustee is one charity trustee from the charity registry.
type Trustee struct {
	Name string `json:"name"`
}

// CharityDocument is a filing or document exposed by the charity registry.
type CharityDocument struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Date  string `json:"date,omitempty"`
}

// EnrichmentMetadata records timing and tree metrics for one enrichment run.
type EnrichmentMetadata struct {
	DurationSeconds float64   `json:"enrichment_duration_seconds"`
	TreeDepth       int       `json:"tree_depth"`
	TotalEntities   int       `json:"total_entities_in_tree"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EnrichmentBundle is the aggregate output of one enrichment run. It is owned
// by its EntityRecord and serialized to durable storage so results survive a
// process restart. Registry snapshots are kept raw: downstream consumers read
// them without this engine taking a dependency on every registry field.
type EnrichmentBundle struct {
	CompanyNumber string    `json:"company_number,omitempty"`
	CharityNumber string    `json:"charity_number,omitempty"`
	RetrievedAt   time.Time `json:"retrieved_at"`

	Profile  json.RawMessage `json:"profile,omitempty"`
	Officers json.RawMessage `json:"officers,omitempty"`
	PSCs     json.RawMessage `json:"pscs,omitempty"`
	Charges  json.RawMessage `json:"charges,omitempty"`

	// Charity-path fields.
	Trustees         []Trustee         `json:"trustees,omitempty"`
	CharityDocuments []CharityDocument `json:"charity_documents,omitempty"`

	RegularShareholders   []Shareholder    `json:"regular_shareholders"`
	CorporateShareholders []Shareholder    `json:"parent_shareholders"`
	TotalShares           int64            `json:"total_shares"`
	ExtractionStatus      ExtractionStatus `json:"shareholders_status"`

	OwnershipTree   *OwnershipNode   `json:"ownership_tree,omitempty"`
	OwnershipChains []OwnershipChain `json:"ownership_chains,omitempty"`

	Metadata EnrichmentMetadata `json:"enrichment_metadata"`
}

// AllShareholders returns regular and corporate shareholders in one slice.
func (b *EnrichmentBundle) AllShareholders() []Shareholder {
	out := make([]Shareholder, 0, len(b.RegularShareholders)+len(b.CorporateShareholders))
	out = append(out, b.RegularShareholders...)
	out = append(out, b.CorporateShareholders...)
	return out
}
