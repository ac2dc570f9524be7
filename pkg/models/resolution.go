package models

import "time"

// ResolutionStatus describes how an entity-name resolution concluded.
type ResolutionStatus string

const (
	ResolutionStatusAuto           ResolutionStatus = "auto"
	ResolutionStatusManualRequired ResolutionStatus = "manual_required"
)

// ResolutionCandidate is one ranked registry match for an input name.
type ResolutionCandidate struct {
	Source        string    `json:"source"`
	Registry      string    `json:"registry"`
	EntityName    string    `json:"entity_name"`
	CompanyNumber string    `json:"company_number,omitempty"`
	CharityNumber string    `json:"charity_number,omitempty"`
	EntityStatus  string    `json:"company_status,omitempty"`
	Address       string    `json:"address,omitempty"`
	Confidence    float64   `json:"confidence"`
	SourceURL     string    `json:"source_url,omitempty"`
	RetrievedAt   time.Time `json:"retrieved_at"`
}

// EntityResolution is the outcome of resolving an input name across
// registries. When Status is auto, Resolved identifies the single accepted
// match; otherwise Candidates carries the ranked list for manual review.
type EntityResolution struct {
	InputName  string                `json:"input_name"`
	Status     ResolutionStatus      `json:"status"`
	MatchType  string                `json:"match_type,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	Resolved   *ResolutionCandidate  `json:"resolved,omitempty"`
	Candidates []ResolutionCandidate `json:"candidates,omitempty"`
}
