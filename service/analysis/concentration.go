package analysis

import "github.com/shopspring/decimal"

// TopShares computes the percentage of supply held by the largest 1, 5 and
// 10 entries of an already-sorted holder list. Shorter lists use whatever
// exists; a non-positive supply yields all zeros rather than dividing by it.
func TopShares(holders []HolderAggregate, supply decimal.Decimal) ConcentrationSummary {
	if supply.Sign() <= 0 {
		return ConcentrationSummary{}
	}
	return ConcentrationSummary{
		Top1:  topKShare(holders, 1, supply),
		Top5:  topKShare(holders, 5, supply),
		Top10: topKShare(holders, 10, supply),
	}
}

func topKShare(holders []HolderAggregate, k int, supply decimal.Decimal) float64 {
	sum := decimal.Zero
	for i := 0; i < k && i < len(holders); i++ {
		sum = sum.Add(holders[i].Amount)
	}
	pct, _ := sum.Div(supply).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
