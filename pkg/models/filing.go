package models

// FilingType is a statutory filing type code.
type FilingType string

const (
	FilingTypeCS01   FilingType = "CS01"   // confirmation statement
	FilingTypeAR01   FilingType = "AR01"   // annual return
	FilingTypeIN01   FilingType = "IN01"   // incorporation
	FilingTypeNEWINC FilingType = "NEWINC" // legacy incorporation code, treated as IN01
)

// FilingTypePriority is the fixed fallback order for shareholder resolution.
var FilingTypePriority = []FilingType{FilingTypeCS01, FilingTypeAR01, FilingTypeIN01}

// Filing is one statutory filing candidate. Produced by the registry gateway,
// immutable, ordered most-recent-first.
type Filing struct {
	CompanyNumber string     `json:"company_number"`
	TransactionID string     `json:"transaction_id"`
	Type          FilingType `json:"type"`
	Date          string     `json:"date"` // registry date string, YYYY-MM-DD
	Description   string     `json:"description,omitempty"`
	DocumentID    string     `json:"document_id"`
}
