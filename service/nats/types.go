package nats

import (
	"time"

	"mintwatch/service/analysis"
)

// TokenReportEvent is the report summary published to NATS after a combined
// analysis completes. It is published to the subject "tokens.{mint}" in
// JetStream so downstream consumers (alerting, dashboards) can react to fresh
// assessments without polling the HTTP API.
type TokenReportEvent struct {
	// Token identifiers
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
	Supply   string `json:"supply"`

	// Holder shape
	HolderCount  int     `json:"holder_count"`
	UsedFallback bool    `json:"used_fallback"`
	Top1Pct      float64 `json:"top1_pct"`
	Top5Pct      float64 `json:"top5_pct"`
	Top10Pct     float64 `json:"top10_pct"`
	WhaleCount   int     `json:"whale_count"`

	// Safety signals
	RiskLevel         string   `json:"risk_level"`
	Reasons           []string `json:"reasons"`
	TotalLiquidityUSD float64  `json:"total_liquidity_usd"`

	// Timing information
	GeneratedAt time.Time `json:"generated_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromReport converts a completed analysis report to a TokenReportEvent for
// publishing.
func FromReport(report *analysis.TokenReport) *TokenReportEvent {
	event := &TokenReportEvent{
		Mint:         report.Mint,
		HolderCount:  len(report.Holders),
		UsedFallback: report.UsedFallback,
		Top1Pct:      report.Concentration.Top1,
		Top5Pct:      report.Concentration.Top5,
		Top10Pct:     report.Concentration.Top10,
		GeneratedAt:  report.GeneratedAt,
		PublishedAt:  time.Now().UTC(),
	}

	if report.MintInfo != nil {
		event.Decimals = report.MintInfo.Decimals
		event.Supply = report.MintInfo.Supply().String()
	}
	if report.Whales != nil {
		event.WhaleCount = len(report.Whales.Whales)
	}
	if report.Safety != nil {
		event.RiskLevel = string(report.Safety.RiskLevel)
		event.Reasons = report.Safety.Reasons
		event.TotalLiquidityUSD = report.Safety.TotalLiquidityUSD
	}

	return event
}
