package registry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const charityTestBase = "https://charity.test/register/api"

func newTestCharityClient(t *testing.T) *CharityClient {
	t.Helper()
	return NewCharityClient(Options{
		BaseURL:          charityTestBase,
		APIKey:           "sub-key",
		RateLimitBackoff: time.Millisecond,
		Logger:           zap.NewNop(),
	})
}

func TestCharityClient_SearchCharities(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var gotKey string
	httpmock.RegisterResponder("GET", charityTestBase+"/searchCharityName/helping%20hands",
		func(req *http.Request) (*http.Response, error) {
			gotKey = req.Header.Get("Ocp-Apim-Subscription-Key")
			return httpmock.NewStringResponse(200, `[
				{"reg_charity_number": "1122334", "charity_name": "HELPING HANDS", "reg_status": "R"}
			]`), nil
		})

	client := newTestCharityClient(t)
	items, err := client.SearchCharities(context.Background(), "helping hands")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1122334", items[0].RegisteredCharityNumber)
	assert.Equal(t, "sub-key", gotKey)
}

func TestCharityClient_SearchCharities_NotFoundIsEmpty(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", charityTestBase+"/searchCharityName/nobody",
		httpmock.NewStringResponder(404, ""))

	client := newTestCharityClient(t)
	items, err := client.SearchCharities(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCharityClient_CharityDetails(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", charityTestBase+"/allcharitydetailsV2/1122334/0",
		httpmock.NewStringResponder(200, `{
			"reg_charity_number": "1122334",
			"charity_name": "HELPING HANDS",
			"reg_status": "R",
			"address_line_one": "1 High Street",
			"address_town": "York",
			"address_postcode": "YO1 1AA"
		}`))

	client := newTestCharityClient(t)
	details, err := client.CharityDetails(context.Background(), "1122334")
	require.NoError(t, err)
	assert.Equal(t, "HELPING HANDS", details.CharityName)
	assert.Equal(t, "1 High Street, York, YO1 1AA", details.AddressSummary())
}

func TestCharityClient_CharityTrustees(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", charityTestBase+"/charity/1122334/trustees",
		httpmock.NewStringResponder(200, `[
			{"trustee_id": 1, "trustee_name": "JOAN ARMSTRONG"},
			{"trustee_id": 2, "trustee_name": "PETER WRIGHT"}
		]`))

	client := newTestCharityClient(t)
	trustees, err := client.CharityTrustees(context.Background(), "1122334")
	require.NoError(t, err)
	require.Len(t, trustees, 2)
	assert.Equal(t, "JOAN ARMSTRONG", trustees[0].TrusteeName)
}
