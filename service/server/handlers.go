package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"
	"unicode"

	"mintwatch/service/analysis"
	"mintwatch/service/metrics"
	"mintwatch/service/nats"
)

const (
	maxAddressLength = 100 // Solana addresses are 44 chars, give buffer
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validMintRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// AnalysisService is the interface the handlers need from the analyzer.
// Defined here so tests can swap in a mock without touching the RPC layer.
type AnalysisService interface {
	Holders(ctx context.Context, mint string) (*analysis.HolderSet, error)
	Concentration(ctx context.Context, mint string) (*analysis.ConcentrationReport, error)
	Whales(ctx context.Context, mint string, minPct float64, limit int) (*analysis.WhaleReport, error)
	Safety(ctx context.Context, mint string) (*analysis.SafetyAssessment, error)
	Report(ctx context.Context, mint string) (*analysis.TokenReport, error)
}

// Response types. Amounts are serialized as decimal strings so callers never
// lose precision to float rounding.

type holderEntry struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type holdersResponse struct {
	Mint         string        `json:"mint"`
	HolderCount  int           `json:"holder_count"`
	UsedFallback bool          `json:"used_fallback"`
	Holders      []holderEntry `json:"holders"`
}

type concentrationSummary struct {
	Top1Pct  float64 `json:"top1_pct"`
	Top5Pct  float64 `json:"top5_pct"`
	Top10Pct float64 `json:"top10_pct"`
}

type concentrationResponse struct {
	Mint          string               `json:"mint"`
	Supply        string               `json:"supply"`
	HolderCount   int                  `json:"holder_count"`
	Concentration concentrationSummary `json:"concentration"`
	UsedFallback  bool                 `json:"used_fallback"`
}

type whaleEntry struct {
	Owner    string  `json:"owner"`
	Amount   string  `json:"amount"`
	SharePct float64 `json:"share_pct"`
}

type whalesResponse struct {
	Mint          string               `json:"mint"`
	Whales        []whaleEntry         `json:"whales"`
	Concentration concentrationSummary `json:"concentration"`
	UsedFallback  bool                 `json:"used_fallback"`
}

type poolResponse struct {
	Venue        string  `json:"venue"`
	PairAddress  string  `json:"pair_address"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	PriceUSD     float64 `json:"price_usd"`
	URL          string  `json:"url,omitempty"`
}

type safetyResponse struct {
	Mint              string        `json:"mint"`
	RiskLevel         string        `json:"risk_level"`
	Reasons           []string      `json:"reasons"`
	ImmutableMint     bool          `json:"immutable_mint"`
	CanFreeze         bool          `json:"can_freeze"`
	HasLiquidityPool  bool          `json:"has_liquidity_pool"`
	LowLiquidity      bool          `json:"low_liquidity"`
	VeryLowLiquidity  bool          `json:"very_low_liquidity"`
	PoolCount         int           `json:"pool_count"`
	TotalLiquidityUSD float64       `json:"total_liquidity_usd"`
	LargestPool       *poolResponse `json:"largest_pool,omitempty"`
}

type mintInfoResponse struct {
	Address         string  `json:"address"`
	Decimals        uint8   `json:"decimals"`
	Supply          string  `json:"supply"`
	MintAuthority   *string `json:"mint_authority,omitempty"`
	FreezeAuthority *string `json:"freeze_authority,omitempty"`
}

type reportResponse struct {
	Mint          string               `json:"mint"`
	MintInfo      mintInfoResponse     `json:"mint_info"`
	HolderCount   int                  `json:"holder_count"`
	Holders       []holderEntry        `json:"holders"`
	Concentration concentrationSummary `json:"concentration"`
	Whales        []whaleEntry         `json:"whales"`
	Safety        safetyResponse       `json:"safety"`
	UsedFallback  bool                 `json:"used_fallback"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// handleGetHolders returns a handler that serves the aggregated holder list.
// GET /api/v1/tokens/{mint}/holders
func handleGetHolders(svc AnalysisService, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		set, err := svc.Holders(r.Context(), mint)
		recordAnalysis(m, "holders", start, err)
		if err != nil {
			writeAnalysisError(w, logger, "holders", mint, err)
			return
		}
		recordHolderScan(m, set.UsedFallback, len(set.Holders))

		writeJSON(w, holdersResponse{
			Mint:         mint,
			HolderCount:  len(set.Holders),
			UsedFallback: set.UsedFallback,
			Holders:      toHolderEntries(set.Holders),
		}, http.StatusOK)
	})
}

// handleGetConcentration returns a handler that serves the top-K supply
// shares.
// GET /api/v1/tokens/{mint}/concentration
func handleGetConcentration(svc AnalysisService, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		report, err := svc.Concentration(r.Context(), mint)
		recordAnalysis(m, "concentration", start, err)
		if err != nil {
			writeAnalysisError(w, logger, "concentration", mint, err)
			return
		}

		writeJSON(w, concentrationResponse{
			Mint:          report.Mint,
			Supply:        report.Supply.String(),
			HolderCount:   report.HolderCount,
			Concentration: toConcentrationSummary(report.Concentration),
			UsedFallback:  report.UsedFallback,
		}, http.StatusOK)
	})
}

// handleGetWhales returns a handler that serves whale detection results.
// GET /api/v1/tokens/{mint}/whales?min_pct={pct}&limit={n}
func handleGetWhales(svc AnalysisService, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		minPct, err := parseFloatParam(r, "min_pct")
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit, err := parseIntParam(r, "limit")
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if minPct < 0 || minPct > 100 {
			writeError(w, "min_pct must be between 0 and 100", http.StatusBadRequest)
			return
		}
		if limit < 0 {
			writeError(w, "limit must be positive", http.StatusBadRequest)
			return
		}

		start := time.Now()
		report, err := svc.Whales(r.Context(), mint, minPct, limit)
		recordAnalysis(m, "whales", start, err)
		if err != nil {
			writeAnalysisError(w, logger, "whales", mint, err)
			return
		}

		writeJSON(w, whalesResponse{
			Mint:          mint,
			Whales:        toWhaleEntries(report.Whales),
			Concentration: toConcentrationSummary(report.Concentration),
			UsedFallback:  report.UsedFallback,
		}, http.StatusOK)
	})
}

// handleGetSafety returns a handler that serves the heuristic risk
// assessment.
// GET /api/v1/tokens/{mint}/safety
func handleGetSafety(svc AnalysisService, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		assessment, err := svc.Safety(r.Context(), mint)
		recordAnalysis(m, "safety", start, err)
		if err != nil {
			writeAnalysisError(w, logger, "safety", mint, err)
			return
		}

		writeJSON(w, toSafetyResponse(assessment), http.StatusOK)
	})
}

// handleGetReport returns a handler that serves the combined report. If a
// publisher is configured, the report is also published to NATS; publish
// failures are logged but never fail the request.
// GET /api/v1/tokens/{mint}/report
func handleGetReport(svc AnalysisService, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		report, err := svc.Report(r.Context(), mint)
		recordAnalysis(m, "report", start, err)
		if err != nil {
			writeAnalysisError(w, logger, "report", mint, err)
			return
		}
		recordHolderScan(m, report.UsedFallback, len(report.Holders))

		if publisher != nil {
			publishReport(r.Context(), publisher, report, m, logger)
		}

		resp := reportResponse{
			Mint:          report.Mint,
			HolderCount:   len(report.Holders),
			Holders:       toHolderEntries(report.Holders),
			Concentration: toConcentrationSummary(report.Concentration),
			UsedFallback:  report.UsedFallback,
			GeneratedAt:   report.GeneratedAt,
		}
		if report.MintInfo != nil {
			resp.MintInfo = mintInfoResponse{
				Address:         report.MintInfo.Address,
				Decimals:        report.MintInfo.Decimals,
				Supply:          report.MintInfo.Supply().String(),
				MintAuthority:   report.MintInfo.MintAuthority,
				FreezeAuthority: report.MintInfo.FreezeAuthority,
			}
		}
		if report.Whales != nil {
			resp.Whales = toWhaleEntries(report.Whales.Whales)
		}
		if report.Safety != nil {
			resp.Safety = toSafetyResponse(report.Safety)
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// publishReport sends the report event to NATS best-effort.
func publishReport(ctx context.Context, publisher nats.Publisher, report *analysis.TokenReport, m *metrics.Metrics, logger *slog.Logger) {
	event := nats.FromReport(report)
	start := time.Now()
	err := publisher.PublishReport(ctx, event)
	status := "success"
	if err != nil {
		status = "error"
		logger.Error("failed to publish report event",
			"mint", report.Mint,
			"error", err,
		)
	}
	if m != nil {
		m.RecordNATSPublish("tokens."+report.Mint, status, time.Since(start).Seconds())
	}
}

// Conversion helpers

func toHolderEntries(holders []analysis.HolderAggregate) []holderEntry {
	entries := make([]holderEntry, len(holders))
	for i, h := range holders {
		entries[i] = holderEntry{Owner: h.Owner, Amount: h.Amount.String()}
	}
	return entries
}

func toWhaleEntries(whales []analysis.WhaleHolder) []whaleEntry {
	entries := make([]whaleEntry, len(whales))
	for i, wh := range whales {
		entries[i] = whaleEntry{Owner: wh.Owner, Amount: wh.Amount.String(), SharePct: wh.SharePct}
	}
	return entries
}

func toConcentrationSummary(c analysis.ConcentrationSummary) concentrationSummary {
	return concentrationSummary{Top1Pct: c.Top1, Top5Pct: c.Top5, Top10Pct: c.Top10}
}

func toSafetyResponse(a *analysis.SafetyAssessment) safetyResponse {
	resp := safetyResponse{
		Mint:              a.Mint,
		RiskLevel:         string(a.RiskLevel),
		Reasons:           a.Reasons,
		ImmutableMint:     a.ImmutableMint,
		CanFreeze:         a.CanFreeze,
		HasLiquidityPool:  a.HasLiquidityPool,
		LowLiquidity:      a.LowLiquidity,
		VeryLowLiquidity:  a.VeryLowLiquidity,
		PoolCount:         a.PoolCount,
		TotalLiquidityUSD: a.TotalLiquidityUSD,
	}
	if a.LargestPool != nil {
		resp.LargestPool = &poolResponse{
			Venue:        a.LargestPool.VenueID,
			PairAddress:  a.LargestPool.PairAddress,
			LiquidityUSD: a.LargestPool.LiquidityUSD,
			Volume24hUSD: a.LargestPool.Volume24hUSD,
			PriceUSD:     a.LargestPool.PriceUSD,
			URL:          a.LargestPool.URL,
		}
	}
	return resp
}

// writeAnalysisError maps analysis errors to HTTP status codes.
func writeAnalysisError(w http.ResponseWriter, logger *slog.Logger, operation, mint string, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidMint):
		logger.Debug("invalid mint rejected", "operation", operation, "mint", mint, "error", err)
		writeError(w, "invalid mint address", http.StatusBadRequest)
	case errors.Is(err, analysis.ErrMintNotFound):
		logger.Debug("mint not found", "operation", operation, "mint", mint)
		writeError(w, "mint not found", http.StatusNotFound)
	case errors.Is(err, analysis.ErrScanLimited):
		logger.Warn("holder data unavailable", "operation", operation, "mint", mint, "error", err)
		writeError(w, "holder data temporarily unavailable, retry later", http.StatusServiceUnavailable)
	case analysis.IsTransport(err):
		logger.Error("upstream failure", "operation", operation, "mint", mint, "error", err)
		writeError(w, "upstream data source unavailable", http.StatusBadGateway)
	default:
		logger.Error("analysis failed", "operation", operation, "mint", mint, "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

func recordHolderScan(m *metrics.Metrics, usedFallback bool, holderCount int) {
	if m == nil {
		return
	}
	mode := "full"
	if usedFallback {
		mode = "fallback"
	}
	m.RecordHolderScan(mode, "success", holderCount)
}

func recordAnalysis(m *metrics.Metrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordAnalysis(operation, status, time.Since(start).Seconds())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateMint validates a mint address for security and format.
func validateMint(mint string) error {
	if mint == "" {
		return fmt.Errorf("mint is required")
	}

	if len(mint) > maxAddressLength {
		return fmt.Errorf("mint too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range mint {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("invalid characters in mint: control characters not allowed")
		}
	}

	if !validMintRegex.MatchString(mint) {
		return fmt.Errorf("invalid mint format: must contain only valid base58 characters")
	}

	return nil
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", name)
	}
	return parsed, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", name)
	}
	return parsed, nil
}
