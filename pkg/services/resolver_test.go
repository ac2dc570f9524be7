package services

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

func newTestEntityResolver(withCharities bool) *EntityResolver {
	companies := registry.NewCompaniesClient(registry.Options{
		BaseURL:          companiesBase,
		APIKey:           "test-key",
		Timeout:          time.Second,
		RateLimitBackoff: time.Millisecond,
		Logger:           zap.NewNop(),
	})
	var charities *registry.CharityClient
	if withCharities {
		charities = registry.NewCharityClient(registry.Options{
			BaseURL:          charityBase,
			APIKey:           "charity-key",
			Timeout:          time.Second,
			RateLimitBackoff: time.Millisecond,
			Logger:           zap.NewNop(),
		})
	}
	return NewEntityResolver(companies, charities, zap.NewNop())
}

func registerCompanySearch(body string) {
	httpmock.RegisterResponder("GET", companiesBase+"/search/companies",
		httpmock.NewStringResponder(200, body))
}

func TestResolveEntity_ExactCanonicalMatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":2,"items":[
		{"title":"ACME WIDGETS LIMITED","company_number":"01234567","company_status":"active"},
		{"title":"ACME WIDGETS (NORTH) LIMITED","company_number":"07654321","company_status":"active"}
	]}`)

	r := newTestEntityResolver(false)
	res, err := r.ResolveEntity(context.Background(), "Acme Widgets Ltd")
	require.NoError(t, err)

	assert.Equal(t, models.ResolutionStatusAuto, res.Status)
	require.NotNil(t, res.Resolved)
	assert.Equal(t, "ACME WIDGETS LIMITED", res.Resolved.EntityName)
	assert.Equal(t, "01234567", res.Resolved.CompanyNumber)
	assert.Equal(t, 1.0, res.Resolved.Confidence)
	assert.Contains(t, res.MatchType, "Exact after canonicalisation")
}

func TestResolveEntity_HighConfidenceAutoResolve(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	// No canonical exact match, but the best candidate is nearly identical.
	registerCompanySearch(`{"total_results":1,"items":[
		{"title":"ACME WIDGETS AND SONS LIMITED","company_number":"01234567","company_status":"active"}
	]}`)

	r := newTestEntityResolver(false)
	res, err := r.ResolveEntity(context.Background(), "Acme Widgets and Son Limited")
	require.NoError(t, err)

	assert.Equal(t, models.ResolutionStatusAuto, res.Status)
	require.NotNil(t, res.Resolved)
	assert.Greater(t, res.Resolved.Confidence, 0.9)
	assert.Contains(t, res.MatchType, "High-confidence match")
}

func TestResolveEntity_ManualRequiredWithCandidates(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":2,"items":[
		{"title":"NORTHERN TRADING LIMITED","company_number":"01111111","company_status":"active"},
		{"title":"SOUTHERN SUPPLIES LIMITED","company_number":"02222222","company_status":"dissolved"}
	]}`)

	r := newTestEntityResolver(false)
	res, err := r.ResolveEntity(context.Background(), "Completely Different Name Ltd")
	require.NoError(t, err)

	assert.Equal(t, models.ResolutionStatusManualRequired, res.Status)
	assert.Nil(t, res.Resolved)
	assert.Len(t, res.Candidates, 2)
	// Candidates are ranked by confidence.
	assert.GreaterOrEqual(t, res.Candidates[0].Confidence, res.Candidates[1].Confidence)
}

func TestResolveEntity_CharityExactMatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":0,"items":[]}`)
	httpmock.RegisterResponder("GET", charityBase+"/searchCharityName/Helping%20Hands",
		httpmock.NewStringResponder(200, `[
			{"reg_charity_number":"1122334","charity_name":"HELPING HANDS","reg_status":"registered"}
		]`))

	r := newTestEntityResolver(true)
	res, err := r.ResolveEntity(context.Background(), "Helping Hands")
	require.NoError(t, err)

	assert.Equal(t, models.ResolutionStatusAuto, res.Status)
	require.NotNil(t, res.Resolved)
	assert.Equal(t, "CCEW", res.Resolved.Registry)
	assert.Equal(t, "1122334", res.Resolved.CharityNumber)
}

func TestResolveEntity_CharitySearchFailureDegradesToCompanies(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":1,"items":[
		{"title":"BRIDGE WORKS LIMITED","company_number":"01234567","company_status":"active"}
	]}`)
	httpmock.RegisterResponder("GET", charityBase+"/searchCharityName/Bridge%20Works%20Limited",
		httpmock.NewStringResponder(500, `{"error":"internal"}`))

	r := newTestEntityResolver(true)
	res, err := r.ResolveEntity(context.Background(), "Bridge Works Limited")
	require.NoError(t, err)

	// Company resolution still succeeds despite the charity outage.
	assert.Equal(t, models.ResolutionStatusAuto, res.Status)
	require.NotNil(t, res.Resolved)
	assert.Equal(t, "CH", res.Resolved.Registry)
}

func TestResolveEntity_EmptyName(t *testing.T) {
	r := newTestEntityResolver(false)
	_, err := r.ResolveEntity(context.Background(), "  ")
	assert.Error(t, err)
}

func TestResolveCompanyName(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":1,"items":[
		{"title":"HOLDCO LIMITED","company_number":"09999999","company_status":"active"}
	]}`)

	r := newTestEntityResolver(false)
	match, err := r.ResolveCompanyName(context.Background(), "Holdco Limited")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "09999999", match.CompanyNumber)
	assert.Equal(t, 1.0, match.Confidence)
}

func TestResolveCompanyName_NoHits(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	registerCompanySearch(`{"total_results":0,"items":[]}`)

	r := newTestEntityResolver(false)
	match, err := r.ResolveCompanyName(context.Background(), "Nothing Matches This Ltd")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestPickExact_PrefersCaseInsensitiveExactThenLongest(t *testing.T) {
	cands := []models.ResolutionCandidate{
		{EntityName: "ACME LTD"},
		{EntityName: "ACME WIDGETS LIMITED"},
	}
	got := pickExact("acme ltd", cands)
	require.NotNil(t, got)
	assert.Equal(t, "ACME LTD", got.EntityName)
	assert.Equal(t, 1.0, got.Confidence)

	got = pickExact("something else", cands)
	require.NotNil(t, got)
	assert.Equal(t, "ACME WIDGETS LIMITED", got.EntityName)
}
