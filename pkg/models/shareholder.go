package models

// ============================================================================
// Holder Classification
// ============================================================================

// Classification discriminates the holder variants a shareholder record can
// take: a natural person, a corporate entity, or a corporate entity whose
// registry identity could not be established.
type Classification string

const (
	ClassificationIndividual Classification = "individual"
	ClassificationCorporate  Classification = "corporate"
	ClassificationUnresolved Classification = "unresolved"
)

// ============================================================================
// Extraction Method
// ============================================================================

// ExtractionMethod records which extraction path produced a candidate.
type ExtractionMethod string

const (
	ExtractionMethodOCRLLM           ExtractionMethod = "ocr+llm"
	ExtractionMethodOCRPattern       ExtractionMethod = "ocr+pattern"
	ExtractionMethodTextLayerLLM     ExtractionMethod = "textlayer+llm"
	ExtractionMethodTextLayerPattern ExtractionMethod = "textlayer+pattern"
	ExtractionMethodPSCRegister      ExtractionMethod = "psc-register"
)

// ============================================================================
// Shareholder
// ============================================================================

// ShareTransfer is one transfer entry disclosed on a filing.
type ShareTransfer struct {
	Amount int64  `json:"amount"`
	Date   string `json:"date,omitempty"` // YYYY-MM-DD
}

// Shareholder is one shareholder candidate recovered from a filing or the
// significant-control register. SharesKnown is false for control-register
// entries and guarantee companies, where only a percentage band is available.
type Shareholder struct {
	Name           string           `json:"name"`
	SharesHeld     int64            `json:"shares_held"`
	SharesKnown    bool             `json:"shares_known"`
	ShareClass     string           `json:"share_class,omitempty"`
	Percentage     float64          `json:"percentage"`
	PercentageBand string           `json:"percentage_band,omitempty"`
	Transfers      []ShareTransfer  `json:"transfers,omitempty"`
	Classification Classification   `json:"classification"`
	Source         string           `json:"source,omitempty"` // filing type or "PSC Register"
	Method         ExtractionMethod `json:"method,omitempty"`
	ControlNatures []string         `json:"control_natures,omitempty"` // PSC-sourced entries only
}

// ============================================================================
// Extraction Status Taxonomy
// ============================================================================

// ExtractionStatus is a diagnostic code describing which sources were tried
// and whether each yielded shareholders, so failures can be understood
// without re-running extraction.
type ExtractionStatus string

const (
	ExtractionStatusFound               ExtractionStatus = "found"
	ExtractionStatusFoundViaPSCFallback ExtractionStatus = "found_via_psc_fallback"
	ExtractionStatusFoundViaPSCGuarantee ExtractionStatus = "found_via_psc_guarantee"
	ExtractionStatusPreExtracted        ExtractionStatus = "pre-extracted"
	ExtractionStatusExtractionError     ExtractionStatus = "extraction_error"
	ExtractionStatusNoDataFound         ExtractionStatus = "no_data_found"
	ExtractionStatusUnknownFailure      ExtractionStatus = "unknown_failure"
)

// SourceOutcome records whether one filing-type source had filings and
// whether any of its filings yielded shareholders.
type SourceOutcome struct {
	Found           bool `json:"found"`
	HasShareholders bool `json:"has_shareholders"`
}

// FailureStatus derives the taxonomy code for a run where no filing type
// yielded shareholders, from the per-source outcomes.
func FailureStatus(cs01, ar01, in01 SourceOutcome) ExtractionStatus {
	switch {
	case cs01.Found && !cs01.HasShareholders:
		switch {
		case ar01.Found && !ar01.HasShareholders:
			if in01.Found && !in01.HasShareholders {
				return "cs01_ar01_in01_found_no_shareholders"
			} else if !in01.Found {
				return "cs01_ar01_found_no_shareholders_in01_not_found"
			}
			return "cs01_ar01_found_no_shareholders_in01_unknown"
		case !ar01.Found:
			if in01.Found && !in01.HasShareholders {
				return "cs01_found_no_shareholders_ar01_in01_found_no_shareholders"
			} else if !in01.Found {
				return "cs01_found_no_shareholders_no_ar01_or_in01_filings"
			}
			return "cs01_found_no_shareholders_ar01_not_found_in01_unknown"
		}
	case !cs01.Found:
		switch {
		case ar01.Found && !ar01.HasShareholders:
			if in01.Found && !in01.HasShareholders {
				return "cs01_not_found_ar01_in01_found_no_shareholders"
			} else if !in01.Found {
				return "cs01_not_found_ar01_found_no_shareholders_in01_not_found"
			}
			return "cs01_not_found_ar01_found_no_shareholders_in01_unknown"
		case !ar01.Found:
			if in01.Found && !in01.HasShareholders {
				return "no_cs01_or_ar01_filings_in01_found_no_shareholders"
			} else if !in01.Found {
				return "no_cs01_ar01_or_in01_filings"
			}
			return "no_cs01_or_ar01_filings_in01_unknown"
		}
	}
	return ExtractionStatusUnknownFailure
}

