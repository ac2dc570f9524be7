package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrutinise/ownership-engine/pkg/models"
)

func TestIsCompanyName(t *testing.T) {
	corporate := []string{
		"Acme Widgets Limited",
		"ACME WIDGETS LTD",
		"Acme Widgets Ltd.",
		"Northern Holdings PLC",
		"Alpha Partners LLP",
		"Beta Ventures LP",
		"Gamma Corp",
		"Delta Inc.",
		"Alpha Holdings (UK)",
		"The Rose Family Trust",
		"Omega Investment Management",
	}
	for _, name := range corporate {
		assert.True(t, IsCompanyName(name), name)
	}

	individuals := []string{
		"John Smith",
		"MARY O'BRIEN",
		"S W J Rose",
		"",
	}
	for _, name := range individuals {
		assert.False(t, IsCompanyName(name), name)
	}
}

func TestClassifyShareholder(t *testing.T) {
	assert.Equal(t, models.ClassificationCorporate, ClassifyShareholder("Acme Widgets Limited"))
	assert.Equal(t, models.ClassificationIndividual, ClassifyShareholder("John Smith"))
}

func TestIsParentCompany(t *testing.T) {
	assert.True(t, IsParentCompany("Acme Widgets Limited"))
	assert.True(t, IsParentCompany("ACME WIDGETS LTD"))
	assert.True(t, IsParentCompany("Rose Family Trust"))
	assert.True(t, IsParentCompany("Northern Rock plc"))

	// Corporate-looking but not a parent-company suffix.
	assert.False(t, IsParentCompany("Gamma Corp"))
	assert.False(t, IsParentCompany("Alpha Holdings (UK)"))
	assert.False(t, IsParentCompany("John Smith"))
}

func TestSplitParentCompanies(t *testing.T) {
	in := []models.Shareholder{
		{Name: "John Smith", SharesHeld: 50, SharesKnown: true},
		{Name: "Acme Widgets Limited", SharesHeld: 30, SharesKnown: true},
		{Name: "Gamma Corp", SharesHeld: 20, SharesKnown: true},
	}

	regular, corporate := SplitParentCompanies(in)

	assert.Len(t, corporate, 1)
	assert.Equal(t, "Acme Widgets Limited", corporate[0].Name)
	assert.Equal(t, models.ClassificationCorporate, corporate[0].Classification)

	assert.Len(t, regular, 2)
	assert.Equal(t, models.ClassificationIndividual, regular[0].Classification)
	// Corporate by name heuristic, but not a parent-suffix match.
	assert.Equal(t, models.ClassificationCorporate, regular[1].Classification)
}

func TestSplitParentCompanies_Empty(t *testing.T) {
	regular, corporate := SplitParentCompanies(nil)
	assert.Empty(t, regular)
	assert.Empty(t, corporate)
}
