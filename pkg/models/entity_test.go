package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrichmentStatus_CanStart(t *testing.T) {
	tests := []struct {
		name   string
		status EnrichmentStatus
		want   bool
	}{
		{"pending can start", EnrichmentStatusPending, true},
		{"queued can start", EnrichmentStatusQueued, true},
		{"unset can start", EnrichmentStatus(""), true},
		{"running blocks re-entry", EnrichmentStatusRunning, false},
		{"done blocks re-entry", EnrichmentStatusDone, false},
		{"skipped blocks re-entry", EnrichmentStatusSkipped, false},
		{"failed blocks re-entry", EnrichmentStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.CanStart())
		})
	}
}

func TestEnrichmentStatus_IsTerminal(t *testing.T) {
	assert.False(t, EnrichmentStatusPending.IsTerminal())
	assert.False(t, EnrichmentStatusRunning.IsTerminal())
	assert.True(t, EnrichmentStatusDone.IsTerminal())
	assert.True(t, EnrichmentStatusSkipped.IsTerminal())
	assert.True(t, EnrichmentStatusFailed.IsTerminal())
}

func TestEntityRecord_RegistryID(t *testing.T) {
	company := "01234567"
	charity := "1089464"

	rec := EntityRecord{RegistryKind: RegistryKindCompany, CompanyNumber: &company}
	assert.Equal(t, "01234567", rec.RegistryID())

	rec = EntityRecord{RegistryKind: RegistryKindCharity, CharityNumber: &charity}
	assert.Equal(t, "1089464", rec.RegistryID())

	rec = EntityRecord{RegistryKind: RegistryKindCompany}
	assert.Equal(t, "", rec.RegistryID())
}
