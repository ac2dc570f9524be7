package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

func TestIsGuaranteeCompany(t *testing.T) {
	assert.True(t, IsGuaranteeCompany(&registry.CompanyProfile{Type: "private-limited-guarant-nsc"}))
	assert.True(t, IsGuaranteeCompany(&registry.CompanyProfile{Type: "Private Limited by Guarantee"}))
	assert.False(t, IsGuaranteeCompany(&registry.CompanyProfile{Type: "ltd"}))
	assert.False(t, IsGuaranteeCompany(nil))
}

func TestShareholdersFromPSCs_BandPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		natures  []string
		wantPct  float64
		wantBand string
	}{
		{
			"ownership of shares beats voting rights",
			[]string{"voting-rights-25-to-50-percent", "ownership-of-shares-75-to-100-percent"},
			87.5, "75-100%",
		},
		{
			"middle share band",
			[]string{"ownership-of-shares-50-to-75-percent"},
			62.5, "50-75%",
		},
		{
			"lower share band",
			[]string{"ownership-of-shares-25-to-50-percent"},
			37.5, "25-50%",
		},
		{
			"voting rights when no share bands",
			[]string{"voting-rights-50-to-75-percent"},
			62.5, "50-75% (voting rights)",
		},
		{
			"director appointment is full control",
			[]string{"right-to-appoint-and-remove-directors"},
			100.0, "Control (right to appoint directors)",
		},
		{
			"bare significant influence defaults",
			[]string{"significant-influence-or-control"},
			50.0, "Significant control",
		},
		{
			"no natures at all defaults",
			nil,
			50.0, "Significant control",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pscs := &registry.PSCList{Items: []registry.PSC{
				{Name: "Holdco Limited", Kind: "corporate-entity-person-with-significant-control", NaturesOfControl: tt.natures},
			}}
			out := ShareholdersFromPSCs(pscs, false)
			assert.Len(t, out, 1)
			assert.Equal(t, tt.wantPct, out[0].Percentage)
			assert.Equal(t, tt.wantBand, out[0].PercentageBand)
		})
	}
}

func TestShareholdersFromPSCs_GuaranteeSkipsShareBands(t *testing.T) {
	pscs := &registry.PSCList{Items: []registry.PSC{
		{Name: "Trustee One", Kind: "individual-person-with-significant-control",
			NaturesOfControl: []string{"ownership-of-shares-75-to-100-percent", "voting-rights-50-to-75-percent"}},
	}}

	out := ShareholdersFromPSCs(pscs, true)
	assert.Len(t, out, 1)
	// Share-ownership bands are meaningless without share capital.
	assert.Equal(t, 62.5, out[0].Percentage)
	assert.Equal(t, "50-75% (voting rights)", out[0].PercentageBand)
	assert.Equal(t, "", out[0].ShareClass)
}

func TestShareholdersFromPSCs_SkipsCeased(t *testing.T) {
	pscs := &registry.PSCList{Items: []registry.PSC{
		{Name: "Old Owner Limited", CeasedOn: "2020-01-01", NaturesOfControl: []string{"ownership-of-shares-75-to-100-percent"}},
		{Name: "New Owner Limited", NaturesOfControl: []string{"ownership-of-shares-75-to-100-percent"}},
	}}

	out := ShareholdersFromPSCs(pscs, false)
	assert.Len(t, out, 1)
	assert.Equal(t, "New Owner Limited", out[0].Name)
}

func TestShareholdersFromPSCs_Fields(t *testing.T) {
	pscs := &registry.PSCList{Items: []registry.PSC{
		{Name: "", Kind: "individual-person-with-significant-control"},
	}}

	out := ShareholdersFromPSCs(pscs, false)
	assert.Len(t, out, 1)
	assert.Equal(t, "Unknown", out[0].Name)
	assert.False(t, out[0].SharesKnown)
	assert.Equal(t, "Ordinary", out[0].ShareClass)
	assert.Equal(t, "PSC Register", out[0].Source)
	assert.Equal(t, models.ExtractionMethodPSCRegister, out[0].Method)
	assert.Equal(t, models.ClassificationIndividual, out[0].Classification)
}

func TestShareholdersFromPSCs_Nil(t *testing.T) {
	assert.Nil(t, ShareholdersFromPSCs(nil, false))
}

func TestClassifyPSC(t *testing.T) {
	assert.Equal(t, models.ClassificationCorporate,
		classifyPSC(registry.PSC{Name: "Holdco", Kind: "corporate-entity-person-with-significant-control"}))
	assert.Equal(t, models.ClassificationCorporate,
		classifyPSC(registry.PSC{Name: "Foundation", Kind: "legal-person-person-with-significant-control"}))
	assert.Equal(t, models.ClassificationIndividual,
		classifyPSC(registry.PSC{Name: "John Smith", Kind: "individual-person-with-significant-control"}))
	// Without a kind the name heuristic decides.
	assert.Equal(t, models.ClassificationCorporate,
		classifyPSC(registry.PSC{Name: "Acme Holdings Limited"}))
}

func TestNormalizeSingleHolderBand(t *testing.T) {
	single := []models.Shareholder{{Name: "Holdco Limited", Percentage: 87.5, PercentageBand: "75-100%"}}
	out := NormalizeSingleHolderBand(single)
	assert.Equal(t, 100.0, out[0].Percentage)

	// Voting-rights top band normalizes too.
	voting := []models.Shareholder{{Name: "Holdco Limited", Percentage: 87.5, PercentageBand: "75-100% (voting rights)"}}
	assert.Equal(t, 100.0, NormalizeSingleHolderBand(voting)[0].Percentage)

	// Multiple holders keep their midpoints.
	many := []models.Shareholder{
		{Name: "A", Percentage: 87.5, PercentageBand: "75-100%"},
		{Name: "B", Percentage: 37.5, PercentageBand: "25-50%"},
	}
	out = NormalizeSingleHolderBand(many)
	assert.Equal(t, 87.5, out[0].Percentage)

	// A lower band never normalizes.
	low := []models.Shareholder{{Name: "A", Percentage: 62.5, PercentageBand: "50-75%"}}
	assert.Equal(t, 62.5, NormalizeSingleHolderBand(low)[0].Percentage)
}
