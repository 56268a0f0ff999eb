package dexscreener

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"mintwatch/service/analysis"
	"mintwatch/service/metrics"
)

// DefaultBaseURL is the public DexScreener API root.
const DefaultBaseURL = "https://api.dexscreener.com"

// solanaChainID is the DexScreener chain identifier we keep pairs for.
const solanaChainID = "solana"

// Config holds the tunable parameters for the DexScreener client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  int // requests per minute
	MaxRetries int
	CacheTTL   time.Duration
}

// Client fetches liquidity pool data from DexScreener. Responses are cached
// briefly so repeated analyses of a hot token do not burn through the public
// API's rate limit. Implements analysis.MarketClient.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
	baseURL string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new DexScreener client.
// If m is nil, no metrics will be recorded.
func NewClient(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 300
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60), 1)

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			limiterCtx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()
			return limiter.Wait(limiterCtx)
		})

	return &Client{
		http:    httpClient,
		limiter: limiter,
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
		metrics: m,
	}
}

// PoolsForToken returns the Solana liquidity pools DexScreener knows for the
// given mint. Pairs on other chains are dropped. A nil slice with no error
// means DexScreener has never seen the token.
func (c *Client) PoolsForToken(ctx context.Context, mint string) ([]analysis.MarketPool, error) {
	if cached, ok := c.cache.Get(mint); ok {
		if c.metrics != nil {
			c.metrics.RecordMarketCacheHit()
		}
		return cached.([]analysis.MarketPool), nil
	}

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)

	var parsed tokenPairsResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get(url)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil || (resp != nil && resp.StatusCode() >= 400) {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordMarketRequest("dexscreener", status, duration)
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "dexscreener request failed",
			"mint", mint,
			"error", err,
		)
		return nil, &analysis.TransportError{Collaborator: "dexscreener", Op: "PoolsForToken", Err: err}
	}
	if resp.StatusCode() >= 400 {
		c.logger.ErrorContext(ctx, "dexscreener returned error status",
			"mint", mint,
			"status", resp.StatusCode(),
		)
		return nil, &analysis.TransportError{
			Collaborator: "dexscreener",
			Op:           "PoolsForToken",
			Err:          fmt.Errorf("unexpected status code %d", resp.StatusCode()),
		}
	}

	pools := make([]analysis.MarketPool, 0, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		if !strings.EqualFold(p.ChainID, solanaChainID) {
			continue
		}
		pools = append(pools, toMarketPool(p))
	}

	c.logger.DebugContext(ctx, "fetched liquidity pools",
		"mint", mint,
		"pair_count", len(parsed.Pairs),
		"solana_pool_count", len(pools),
	)

	c.cache.SetDefault(mint, pools)
	return pools, nil
}

func toMarketPool(p pair) analysis.MarketPool {
	pool := analysis.MarketPool{
		VenueID:      p.DexID,
		ChainID:      p.ChainID,
		PairAddress:  p.PairAddress,
		Volume24hUSD: p.Volume.H24,
		URL:          p.URL,
	}
	if p.Liquidity != nil {
		pool.LiquidityUSD = p.Liquidity.USD
	}
	// DexScreener serializes price as a string; a missing or malformed price
	// is not worth failing the whole lookup over.
	if price, err := strconv.ParseFloat(p.PriceUsd, 64); err == nil {
		pool.PriceUSD = price
	}
	return pool
}
