package analysis

import "github.com/shopspring/decimal"

const (
	// DefaultWhaleMinPct is the minimum supply share for a holder to count
	// as a whale.
	DefaultWhaleMinPct = 1.0

	// DefaultWhaleLimit caps the number of whales returned.
	DefaultWhaleLimit = 20
)

// DetectWhales filters an already-sorted holder list down to holders whose
// individual share of supply is at least minPct percent, truncated to limit
// entries. The returned report carries the concentration summary computed
// over the same holder list, so both views describe one snapshot.
//
// A non-positive supply means no holder can satisfy any positive threshold;
// the whale list is empty in that case.
func DetectWhales(holders []HolderAggregate, supply decimal.Decimal, minPct float64, limit int) *WhaleReport {
	if minPct <= 0 {
		minPct = DefaultWhaleMinPct
	}
	if limit <= 0 {
		limit = DefaultWhaleLimit
	}

	report := &WhaleReport{
		Whales:        []WhaleHolder{},
		Concentration: TopShares(holders, supply),
	}
	if supply.Sign() <= 0 {
		return report
	}

	threshold := decimal.NewFromFloat(minPct)
	hundred := decimal.NewFromInt(100)
	for _, h := range holders {
		if len(report.Whales) >= limit {
			break
		}
		share := h.Amount.Div(supply).Mul(hundred)
		if share.LessThan(threshold) {
			// Holders are sorted descending, so nothing further qualifies.
			break
		}
		pct, _ := share.Float64()
		report.Whales = append(report.Whales, WhaleHolder{
			Owner:    h.Owner,
			Amount:   h.Amount,
			SharePct: pct,
		})
	}

	return report
}
