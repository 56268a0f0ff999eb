package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Holder is one beneficial owner and its aggregated balance. The amount is a
// decimal string in UI units.
type Holder struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

// Concentration holds the top-K supply share percentages.
type Concentration struct {
	Top1Pct  float64 `json:"top1_pct"`
	Top5Pct  float64 `json:"top5_pct"`
	Top10Pct float64 `json:"top10_pct"`
}

// Holders is the response of the holders endpoint.
type Holders struct {
	Mint         string   `json:"mint"`
	HolderCount  int      `json:"holder_count"`
	UsedFallback bool     `json:"used_fallback"`
	Holders      []Holder `json:"holders"`
}

// ConcentrationReport is the response of the concentration endpoint.
type ConcentrationReport struct {
	Mint          string        `json:"mint"`
	Supply        string        `json:"supply"`
	HolderCount   int           `json:"holder_count"`
	Concentration Concentration `json:"concentration"`
	UsedFallback  bool          `json:"used_fallback"`
}

// Whale is one holder above the whale threshold.
type Whale struct {
	Owner    string  `json:"owner"`
	Amount   string  `json:"amount"`
	SharePct float64 `json:"share_pct"`
}

// WhaleReport is the response of the whales endpoint.
type WhaleReport struct {
	Mint          string        `json:"mint"`
	Whales        []Whale       `json:"whales"`
	Concentration Concentration `json:"concentration"`
	UsedFallback  bool          `json:"used_fallback"`
}

// Pool describes a liquidity pool on a market venue.
type Pool struct {
	Venue        string  `json:"venue"`
	PairAddress  string  `json:"pair_address"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	PriceUSD     float64 `json:"price_usd"`
	URL          string  `json:"url,omitempty"`
}

// SafetyReport is the response of the safety endpoint.
type SafetyReport struct {
	Mint              string   `json:"mint"`
	RiskLevel         string   `json:"risk_level"`
	Reasons           []string `json:"reasons"`
	ImmutableMint     bool     `json:"immutable_mint"`
	CanFreeze         bool     `json:"can_freeze"`
	HasLiquidityPool  bool     `json:"has_liquidity_pool"`
	LowLiquidity      bool     `json:"low_liquidity"`
	VeryLowLiquidity  bool     `json:"very_low_liquidity"`
	PoolCount         int      `json:"pool_count"`
	TotalLiquidityUSD float64  `json:"total_liquidity_usd"`
	LargestPool       *Pool    `json:"largest_pool,omitempty"`
}

// MintInfo is the mint metadata embedded in the combined report.
type MintInfo struct {
	Address         string  `json:"address"`
	Decimals        uint8   `json:"decimals"`
	Supply          string  `json:"supply"`
	MintAuthority   *string `json:"mint_authority,omitempty"`
	FreezeAuthority *string `json:"freeze_authority,omitempty"`
}

// Report is the response of the combined report endpoint.
type Report struct {
	Mint          string        `json:"mint"`
	MintInfo      MintInfo      `json:"mint_info"`
	HolderCount   int           `json:"holder_count"`
	Holders       []Holder      `json:"holders"`
	Concentration Concentration `json:"concentration"`
	Whales        []Whale       `json:"whales"`
	Safety        SafetyReport  `json:"safety"`
	UsedFallback  bool          `json:"used_fallback"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Client is the HTTP client for the token analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new token analysis service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Holders retrieves the aggregated holder list for a mint.
func (c *Client) Holders(ctx context.Context, mint string) (*Holders, error) {
	var out Holders
	if err := c.get(ctx, c.tokenURL(mint, "holders"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Concentration retrieves the top-K supply shares for a mint.
func (c *Client) Concentration(ctx context.Context, mint string) (*ConcentrationReport, error) {
	var out ConcentrationReport
	if err := c.get(ctx, c.tokenURL(mint, "concentration"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Whales retrieves holders above minPct percent of supply, capped at limit.
// Zero values leave the server defaults in effect.
func (c *Client) Whales(ctx context.Context, mint string, minPct float64, limit int) (*WhaleReport, error) {
	u := c.tokenURL(mint, "whales")
	query := url.Values{}
	if minPct > 0 {
		query.Set("min_pct", fmt.Sprintf("%g", minPct))
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var out WhaleReport
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Safety retrieves the heuristic risk assessment for a mint.
func (c *Client) Safety(ctx context.Context, mint string) (*SafetyReport, error) {
	var out SafetyReport
	if err := c.get(ctx, c.tokenURL(mint, "safety"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report retrieves the combined analysis report for a mint.
func (c *Client) Report(ctx context.Context, mint string) (*Report, error) {
	var out Report
	if err := c.get(ctx, c.tokenURL(mint, "report"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks whether the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) tokenURL(mint, operation string) string {
	return fmt.Sprintf("%s/api/v1/tokens/%s/%s", c.baseURL, url.PathEscape(mint), operation)
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("request completed", "url", u)
	return nil
}

// parseErrorResponse extracts the error message from a failed response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, errResp.Error)
}
