package analysis

import "fmt"

// Liquidity thresholds in USD. Deliberately not configurable.
const (
	veryLowLiquidityUSD = 200.0
	lowLiquidityUSD     = 1000.0
)

// safetySignals are the boolean inputs to the risk rule table.
type safetySignals struct {
	immutableMint    bool
	canFreeze        bool
	hasPool          bool
	lowLiquidity     bool
	veryLowLiquidity bool
}

// riskRules is the ordered rule table. Rules are evaluated in sequence and
// the first match wins, which keeps the precedence auditable and directly
// testable. The last rule always matches.
var riskRules = []struct {
	level RiskLevel
	match func(safetySignals) bool
}{
	{RiskHigh, func(s safetySignals) bool { return !s.hasPool || s.veryLowLiquidity || !s.immutableMint }},
	{RiskMedium, func(s safetySignals) bool { return s.lowLiquidity || s.canFreeze }},
	{RiskLow, func(safetySignals) bool { return true }},
}

// ScoreSafety combines mint authority flags with market liquidity aggregates
// into a risk classification. The pools argument must already be filtered to
// the caller's trusted venue; an empty slice (including the degraded case
// where market data was unavailable) naturally lands in the no-pool branch
// of the high-risk rule, biasing risk upward when liquidity cannot be
// verified.
func ScoreSafety(mint *MintInfo, pools []MarketPool) *SafetyAssessment {
	var total float64
	var largest *MarketPool
	for i := range pools {
		total += pools[i].LiquidityUSD
		// First pool wins ties.
		if largest == nil || pools[i].LiquidityUSD > largest.LiquidityUSD {
			largest = &pools[i]
		}
	}

	signals := safetySignals{
		immutableMint:    mint.ImmutableMint(),
		canFreeze:        mint.CanFreeze(),
		hasPool:          len(pools) > 0,
		lowLiquidity:     total < lowLiquidityUSD,
		veryLowLiquidity: total < veryLowLiquidityUSD,
	}

	level := RiskLow
	for _, rule := range riskRules {
		if rule.match(signals) {
			level = rule.level
			break
		}
	}

	return &SafetyAssessment{
		Mint:              mint.Address,
		ImmutableMint:     signals.immutableMint,
		CanFreeze:         signals.canFreeze,
		HasLiquidityPool:  signals.hasPool,
		LowLiquidity:      signals.lowLiquidity,
		VeryLowLiquidity:  signals.veryLowLiquidity,
		PoolCount:         len(pools),
		TotalLiquidityUSD: total,
		LargestPool:       largest,
		RiskLevel:         level,
		Reasons:           buildReasons(mint, signals, len(pools), total),
	}
}

// buildReasons emits exactly three reason strings in fixed order: mint
// authority, freeze authority, pool/liquidity status.
func buildReasons(mint *MintInfo, s safetySignals, poolCount int, totalLiquidity float64) []string {
	var mintReason string
	if s.immutableMint {
		mintReason = "mint authority is revoked; supply is fixed"
	} else {
		mintReason = fmt.Sprintf("mint authority %s is active; new supply can be minted", *mint.MintAuthority)
	}

	var freezeReason string
	if s.canFreeze {
		freezeReason = fmt.Sprintf("freeze authority %s can freeze holder accounts", *mint.FreezeAuthority)
	} else {
		freezeReason = "no freeze authority; holder accounts cannot be frozen"
	}

	var poolReason string
	switch {
	case !s.hasPool:
		poolReason = "no liquidity pool found on the trusted venue"
	case s.veryLowLiquidity:
		poolReason = fmt.Sprintf("%d pool(s) with $%.2f total liquidity (critically low, under $%.0f)",
			poolCount, totalLiquidity, veryLowLiquidityUSD)
	case s.lowLiquidity:
		poolReason = fmt.Sprintf("%d pool(s) with $%.2f total liquidity (low, under $%.0f)",
			poolCount, totalLiquidity, lowLiquidityUSD)
	default:
		poolReason = fmt.Sprintf("%d pool(s) with $%.2f total liquidity", poolCount, totalLiquidity)
	}

	return []string{mintReason, freezeReason, poolReason}
}
