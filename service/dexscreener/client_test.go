package dexscreener

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintwatch/service/analysis"
)

const pairsFixture = `{
	"schemaVersion": "1.0.0",
	"pairs": [
		{
			"chainId": "solana",
			"dexId": "raydium",
			"url": "https://dexscreener.com/solana/pair1",
			"pairAddress": "pair1",
			"baseToken": {"address": "MintAddr", "name": "Test Token", "symbol": "TT"},
			"quoteToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
			"priceUsd": "0.0123",
			"liquidity": {"usd": 4500.5, "base": 100, "quote": 50},
			"volume": {"h24": 9000}
		},
		{
			"chainId": "ethereum",
			"dexId": "uniswap",
			"url": "https://dexscreener.com/ethereum/pair2",
			"pairAddress": "pair2",
			"baseToken": {"address": "0xabc", "name": "Impostor", "symbol": "TT"},
			"quoteToken": {"address": "0xdef", "name": "WETH", "symbol": "WETH"},
			"priceUsd": "0.5",
			"liquidity": {"usd": 999999},
			"volume": {"h24": 1}
		},
		{
			"chainId": "solana",
			"dexId": "orca",
			"url": "https://dexscreener.com/solana/pair3",
			"pairAddress": "pair3",
			"baseToken": {"address": "MintAddr", "name": "Test Token", "symbol": "TT"},
			"quoteToken": {"address": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "name": "USDC", "symbol": "USDC"},
			"priceUsd": "",
			"liquidity": null,
			"volume": {"h24": 100}
		}
	]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		RateLimit: 6000,
		CacheTTL:  time.Minute,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPoolsForToken_MapsAndFiltersPairs(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/MintAddr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pairsFixture))
	})
	client := newTestClient(srv.URL)

	pools, err := client.PoolsForToken(context.Background(), "MintAddr")
	require.NoError(t, err)

	// The ethereum pair must be dropped.
	require.Len(t, pools, 2)

	assert.Equal(t, "raydium", pools[0].VenueID)
	assert.Equal(t, "pair1", pools[0].PairAddress)
	assert.InDelta(t, 4500.5, pools[0].LiquidityUSD, 1e-9)
	assert.InDelta(t, 0.0123, pools[0].PriceUSD, 1e-9)
	assert.InDelta(t, 9000.0, pools[0].Volume24hUSD, 1e-9)

	// Null liquidity and empty price become zeros, not errors.
	assert.Equal(t, "orca", pools[1].VenueID)
	assert.Zero(t, pools[1].LiquidityUSD)
	assert.Zero(t, pools[1].PriceUSD)
}

func TestPoolsForToken_CachesResponses(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pairsFixture))
	})
	client := newTestClient(srv.URL)

	_, err := client.PoolsForToken(context.Background(), "MintAddr")
	require.NoError(t, err)
	_, err = client.PoolsForToken(context.Background(), "MintAddr")
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second lookup should be served from cache")
}

func TestPoolsForToken_UnknownTokenIsEmptyNotError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"schemaVersion": "1.0.0", "pairs": null}`))
	})
	client := newTestClient(srv.URL)

	pools, err := client.PoolsForToken(context.Background(), "UnknownMint")
	require.NoError(t, err)
	assert.Empty(t, pools)
}

func TestPoolsForToken_ServerErrorIsTransport(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	client := newTestClient(srv.URL)

	_, err := client.PoolsForToken(context.Background(), "MintAddr")
	require.Error(t, err)
	assert.True(t, analysis.IsTransport(err))
	var te *analysis.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dexscreener", te.Collaborator)
}

func TestPoolsForToken_ErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pairsFixture))
	})
	client := newTestClient(srv.URL)

	_, err := client.PoolsForToken(context.Background(), "MintAddr")
	require.Error(t, err)

	pools, err := client.PoolsForToken(context.Background(), "MintAddr")
	require.NoError(t, err)
	assert.Len(t, pools, 2)
	assert.Equal(t, int64(2), hits.Load())
}
