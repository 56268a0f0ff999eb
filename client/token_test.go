package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"

func newTestServer(t *testing.T, wantPath string, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Holders(t *testing.T) {
	srv := newTestServer(t, "/api/v1/tokens/"+testMint+"/holders", http.StatusOK, `{
		"mint": "`+testMint+`",
		"holder_count": 2,
		"used_fallback": true,
		"holders": [
			{"owner": "whale", "amount": "600000.5"},
			{"owner": "minnow", "amount": "10"}
		]
	}`)

	c := NewClient(srv.URL, nil, nil)
	holders, err := c.Holders(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, 2, holders.HolderCount)
	assert.True(t, holders.UsedFallback)
	require.Len(t, holders.Holders, 2)
	assert.Equal(t, "whale", holders.Holders[0].Owner)
	assert.Equal(t, "600000.5", holders.Holders[0].Amount)
}

func TestClient_Concentration(t *testing.T) {
	srv := newTestServer(t, "/api/v1/tokens/"+testMint+"/concentration", http.StatusOK, `{
		"mint": "`+testMint+`",
		"supply": "1000000",
		"holder_count": 42,
		"concentration": {"top1_pct": 60, "top5_pct": 90, "top10_pct": 99},
		"used_fallback": false
	}`)

	c := NewClient(srv.URL, nil, nil)
	report, err := c.Concentration(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, "1000000", report.Supply)
	assert.InDelta(t, 60.0, report.Concentration.Top1Pct, 1e-9)
	assert.InDelta(t, 99.0, report.Concentration.Top10Pct, 1e-9)
}

func TestClient_Whales_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2.5", r.URL.Query().Get("min_pct"))
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mint": "` + testMint + `", "whales": []}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Whales(context.Background(), testMint, 2.5, 7)
	require.NoError(t, err)
}

func TestClient_Whales_DefaultsOmitParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mint": "` + testMint + `", "whales": []}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Whales(context.Background(), testMint, 0, 0)
	require.NoError(t, err)
}

func TestClient_Safety(t *testing.T) {
	srv := newTestServer(t, "/api/v1/tokens/"+testMint+"/safety", http.StatusOK, `{
		"mint": "`+testMint+`",
		"risk_level": "high",
		"reasons": ["mint authority is still active", "freeze authority is not set", "no liquidity pool found on the trusted venue"],
		"has_liquidity_pool": false
	}`)

	c := NewClient(srv.URL, nil, nil)
	safety, err := c.Safety(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, "high", safety.RiskLevel)
	assert.Len(t, safety.Reasons, 3)
	assert.False(t, safety.HasLiquidityPool)
	assert.Nil(t, safety.LargestPool)
}

func TestClient_Report(t *testing.T) {
	srv := newTestServer(t, "/api/v1/tokens/"+testMint+"/report", http.StatusOK, `{
		"mint": "`+testMint+`",
		"mint_info": {"address": "`+testMint+`", "decimals": 6, "supply": "1000000"},
		"holder_count": 1,
		"holders": [{"owner": "whale", "amount": "600000"}],
		"concentration": {"top1_pct": 60, "top5_pct": 60, "top10_pct": 60},
		"whales": [{"owner": "whale", "amount": "600000", "share_pct": 60}],
		"safety": {"mint": "`+testMint+`", "risk_level": "low", "reasons": ["a", "b", "c"]},
		"used_fallback": false,
		"generated_at": "2025-06-01T12:00:00Z"
	}`)

	c := NewClient(srv.URL, nil, nil)
	report, err := c.Report(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, uint8(6), report.MintInfo.Decimals)
	require.Len(t, report.Whales, 1)
	assert.InDelta(t, 60.0, report.Whales[0].SharePct, 1e-9)
	assert.Equal(t, "low", report.Safety.RiskLevel)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestClient_ErrorResponse(t *testing.T) {
	srv := newTestServer(t, "/api/v1/tokens/"+testMint+"/holders", http.StatusNotFound,
		`{"error": "mint not found"}`)

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Holders(context.Background(), testMint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "mint not found")
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil, nil)
	assert.NoError(t, c.Health(context.Background()))
}
