package registry

import "strings"

// Address is a registered office or correspondence address.
type Address struct {
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// CompanyProfile is the company profile resource.
type CompanyProfile struct {
	CompanyNumber           string   `json:"company_number"`
	CompanyName             string   `json:"company_name"`
	CompanyStatus           string   `json:"company_status"`
	Type                    string   `json:"type"`
	Jurisdiction            string   `json:"jurisdiction,omitempty"`
	DateOfCreation          string   `json:"date_of_creation,omitempty"`
	DateOfCessation         string   `json:"date_of_cessation,omitempty"`
	SICCodes                []string `json:"sic_codes,omitempty"`
	RegisteredOfficeAddress Address  `json:"registered_office_address"`
}

// CompanySearchResult is a page of company search hits.
type CompanySearchResult struct {
	TotalResults int                 `json:"total_results"`
	Items        []CompanySearchItem `json:"items"`
}

// CompanySearchItem is a single company search hit.
type CompanySearchItem struct {
	Title          string `json:"title"`
	CompanyNumber  string `json:"company_number"`
	CompanyStatus  string `json:"company_status"`
	CompanyType    string `json:"company_type"`
	DateOfCreation string `json:"date_of_creation,omitempty"`
	AddressSnippet string `json:"address_snippet,omitempty"`
}

// OfficerList is the officers resource.
type OfficerList struct {
	ActiveCount   int       `json:"active_count"`
	ResignedCount int       `json:"resigned_count"`
	Items         []Officer `json:"items"`
}

// Officer is a company officer appointment.
type Officer struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	AppointedOn string `json:"appointed_on,omitempty"`
	ResignedOn  string `json:"resigned_on,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

// PSCList is the persons-with-significant-control resource.
type PSCList struct {
	ActiveCount int   `json:"active_count"`
	CeasedCount int   `json:"ceased_count"`
	TotalCount  int   `json:"total_results"`
	Items       []PSC `json:"items"`
}

// PSC is a person (or entity) with significant control.
type PSC struct {
	Name               string             `json:"name"`
	Kind               string             `json:"kind"`
	NaturesOfControl   []string           `json:"natures_of_control"`
	NotifiedOn         string             `json:"notified_on,omitempty"`
	CeasedOn           string             `json:"ceased_on,omitempty"`
	CountryOfResidence string             `json:"country_of_residence,omitempty"`
	Identification     *PSCIdentification `json:"identification,omitempty"`
}

// Ceased reports whether the control notice has been withdrawn.
func (p PSC) Ceased() bool {
	return p.CeasedOn != ""
}

// PSCIdentification carries registration details for corporate PSCs.
type PSCIdentification struct {
	RegistrationNumber string `json:"registration_number,omitempty"`
	CountryRegistered  string `json:"country_registered,omitempty"`
	LegalForm          string `json:"legal_form,omitempty"`
	LegalAuthority     string `json:"legal_authority,omitempty"`
}

// ChargeList is the charges resource.
type ChargeList struct {
	TotalCount     int      `json:"total_count"`
	SatisfiedCount int      `json:"satisfied_count"`
	Items          []Charge `json:"items"`
}

// Charge is a registered charge against the company.
type Charge struct {
	ChargeNumber   int                  `json:"charge_number"`
	Status         string               `json:"status"`
	CreatedOn      string               `json:"created_on,omitempty"`
	SatisfiedOn    string               `json:"satisfied_on,omitempty"`
	Classification ChargeClassification `json:"classification"`
}

// ChargeClassification describes a charge type.
type ChargeClassification struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// FilingHistory is a page of the filing-history resource.
type FilingHistory struct {
	TotalCount int          `json:"total_count"`
	Items      []FilingItem `json:"items"`
}

// FilingItem is a single filing-history entry.
type FilingItem struct {
	TransactionID string      `json:"transaction_id"`
	Category      string      `json:"category"`
	Type          string      `json:"type"`
	Date          string      `json:"date"`
	Description   string      `json:"description"`
	Links         FilingLinks `json:"links"`
}

// FilingLinks holds resource links for a filing.
type FilingLinks struct {
	Self             string `json:"self,omitempty"`
	DocumentMetadata string `json:"document_metadata,omitempty"`
}

// DocumentID extracts the document identifier from the document_metadata
// link, which ends in /document/{id}.
func (l FilingLinks) DocumentID() string {
	if l.DocumentMetadata == "" {
		return ""
	}
	parts := strings.Split(l.DocumentMetadata, "/")
	return parts[len(parts)-1]
}

// DocumentMetadata is the document API metadata resource.
type DocumentMetadata struct {
	CreatedAt string                      `json:"created_at,omitempty"`
	Pages     int                         `json:"pages,omitempty"`
	Links     DocumentLinks               `json:"links"`
	Resources map[string]DocumentResource `json:"resources,omitempty"`
}

// DocumentLinks holds resource links for a document.
type DocumentLinks struct {
	Self     string `json:"self,omitempty"`
	Document string `json:"document,omitempty"`
}

// DocumentResource describes one available content type of a document.
type DocumentResource struct {
	ContentLength int `json:"content_length,omitempty"`
}

// CharitySearchItem is a single charity-register search hit.
type CharitySearchItem struct {
	RegisteredCharityNumber string `json:"reg_charity_number"`
	OrganisationNumber      int    `json:"organisation_number,omitempty"`
	CharityName             string `json:"charity_name"`
	RegistrationStatus      string `json:"reg_status,omitempty"`
}

// CharityDetails is the charity detail resource.
type CharityDetails struct {
	RegisteredCharityNumber string  `json:"reg_charity_number"`
	CharityName             string  `json:"charity_name"`
	RegistrationStatus      string  `json:"reg_status,omitempty"`
	CharityType             string  `json:"charity_type,omitempty"`
	LatestIncome            float64 `json:"latest_income,omitempty"`
	AddressLine1            string  `json:"address_line_one,omitempty"`
	AddressLine2            string  `json:"address_line_two,omitempty"`
	Town                    string  `json:"address_town,omitempty"`
	Postcode                string  `json:"address_postcode,omitempty"`
	Website                 string  `json:"web,omitempty"`
}

// AddressSummary joins the populated address parts.
func (d CharityDetails) AddressSummary() string {
	parts := []string{}
	for _, p := range []string{d.AddressLine1, d.AddressLine2, d.Town, d.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CharityTrustee is a trustee of a registered charity.
type CharityTrustee struct {
	TrusteeID   int    `json:"trustee_id,omitempty"`
	TrusteeName string `json:"trustee_name"`
}

// CharityDocument is a document filed with the charity register.
type CharityDocument struct {
	DocType     string `json:"doc_type,omitempty"`
	DocDate     string `json:"doc_date,omitempty"`
	DocLocation string `json:"doc_location,omitempty"`
}
