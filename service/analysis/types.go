package analysis

import (
	"time"

	"github.com/shopspring/decimal"
)

// MintInfo is the on-chain description of an SPL token mint.
// SupplyRaw is kept as the raw integer string; exact arithmetic must go
// through Supply() rather than floating point.
type MintInfo struct {
	Address         string  `json:"address"`
	Decimals        uint8   `json:"decimals"`
	SupplyRaw       string  `json:"supply_raw"`
	MintAuthority   *string `json:"mint_authority,omitempty"`
	FreezeAuthority *string `json:"freeze_authority,omitempty"`
	IsInitialized   bool    `json:"is_initialized"`
}

// Supply returns the total supply normalized by the mint's decimals.
// A malformed SupplyRaw yields zero, which downstream components treat
// as the degenerate no-supply case.
func (m *MintInfo) Supply() decimal.Decimal {
	raw, err := decimal.NewFromString(m.SupplyRaw)
	if err != nil {
		return decimal.Zero
	}
	return raw.Shift(-int32(m.Decimals))
}

// ImmutableMint reports whether the supply is frozen forever (no mint authority).
func (m *MintInfo) ImmutableMint() bool {
	return m.MintAuthority == nil
}

// CanFreeze reports whether holder accounts can still be frozen.
func (m *MintInfo) CanFreeze() bool {
	return m.FreezeAuthority != nil
}

// AccountRecord is one ledger token account holding units of a mint.
// Owner is the controlling party, not the account's own address.
type AccountRecord struct {
	Owner     string
	AmountRaw string
	Decimals  uint8
}

// TokenAccountBalance is an entry from the bounded largest-accounts query.
// The owner is not included by the upstream and has to be resolved separately.
type TokenAccountBalance struct {
	Address   string
	AmountRaw string
	Decimals  uint8
}

// HolderAggregate is the summed position of one beneficial owner.
// Amount is always positive; zero-balance owners are dropped during
// aggregation.
type HolderAggregate struct {
	Owner  string          `json:"owner"`
	Amount decimal.Decimal `json:"amount"`
}

// HolderSet is the aggregated holder list for a mint, sorted descending by
// amount. UsedFallback marks that the primary scan was rejected and the list
// only reflects the bounded largest-accounts sample, so any percentages
// derived from it are approximate.
type HolderSet struct {
	Holders      []HolderAggregate
	UsedFallback bool
}

// ConcentrationSummary holds the percentage of total supply held by the
// largest 1, 5 and 10 holders. All values are zero when supply is not
// strictly positive.
type ConcentrationSummary struct {
	Top1  float64 `json:"top1_pct"`
	Top5  float64 `json:"top5_pct"`
	Top10 float64 `json:"top10_pct"`
}

// ConcentrationReport is the concentration view of a mint.
type ConcentrationReport struct {
	Mint          string               `json:"mint"`
	Supply        decimal.Decimal      `json:"supply"`
	HolderCount   int                  `json:"holder_count"`
	Concentration ConcentrationSummary `json:"concentration"`
	UsedFallback  bool                 `json:"used_fallback"`
}

// WhaleHolder is a holder whose share of supply meets the whale threshold.
type WhaleHolder struct {
	Owner    string          `json:"owner"`
	Amount   decimal.Decimal `json:"amount"`
	SharePct float64         `json:"share_pct"`
}

// WhaleReport pairs the whale list with the concentration summary computed
// over the same holder list, so the two views never disagree about the
// underlying snapshot.
type WhaleReport struct {
	Whales        []WhaleHolder        `json:"whales"`
	Concentration ConcentrationSummary `json:"concentration"`
	UsedFallback  bool                 `json:"used_fallback"`
}

// MarketPool is one trading-venue pool for a token, as reported by the
// market data collaborator. Missing USD figures are zero.
type MarketPool struct {
	VenueID      string  `json:"venue_id"`
	ChainID      string  `json:"chain_id"`
	PairAddress  string  `json:"pair_address"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	PriceUSD     float64 `json:"price_usd"`
	URL          string  `json:"url"`
}

// RiskLevel is the three-level heuristic risk classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SafetyAssessment combines mint authority flags with market liquidity
// signals. Reasons always holds exactly three strings in fixed order:
// mint authority, freeze authority, pool/liquidity status.
type SafetyAssessment struct {
	Mint              string      `json:"mint"`
	ImmutableMint     bool        `json:"immutable_mint"`
	CanFreeze         bool        `json:"can_freeze"`
	HasLiquidityPool  bool        `json:"has_liquidity_pool"`
	LowLiquidity      bool        `json:"low_liquidity"`
	VeryLowLiquidity  bool        `json:"very_low_liquidity"`
	PoolCount         int         `json:"pool_count"`
	TotalLiquidityUSD float64     `json:"total_liquidity_usd"`
	LargestPool       *MarketPool `json:"largest_pool,omitempty"`
	RiskLevel         RiskLevel   `json:"risk_level"`
	Reasons           []string    `json:"reasons"`
}

// TokenReport is the full analysis of a mint assembled from a single ledger
// snapshot and a single market snapshot. The two snapshots are fetched
// independently and may reflect different points in time.
type TokenReport struct {
	Mint          string               `json:"mint"`
	MintInfo      *MintInfo            `json:"mint_info"`
	Holders       []HolderAggregate    `json:"holders"`
	Concentration ConcentrationSummary `json:"concentration"`
	Whales        *WhaleReport         `json:"whales"`
	Safety        *SafetyAssessment    `json:"safety"`
	UsedFallback  bool                 `json:"used_fallback"`
	GeneratedAt   time.Time            `json:"generated_at"`
}
