package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func holdersFromAmounts(amounts ...string) []HolderAggregate {
	holders := make([]HolderAggregate, len(amounts))
	for i, a := range amounts {
		holders[i] = HolderAggregate{
			Owner:  string(rune('A' + i)),
			Amount: decimal.RequireFromString(a),
		}
	}
	return holders
}

func TestTopShares_TwoHolders(t *testing.T) {
	// A=600000 (60%), B=400000 (40%) of a 1,000,000 supply.
	holders := holdersFromAmounts("600000", "400000")
	supply := decimal.NewFromInt(1_000_000)

	summary := TopShares(holders, supply)
	assert.InDelta(t, 60.0, summary.Top1, 1e-9)
	assert.InDelta(t, 100.0, summary.Top5, 1e-9)
	assert.InDelta(t, 100.0, summary.Top10, 1e-9)
}

func TestTopShares_MonotonicInK(t *testing.T) {
	holders := holdersFromAmounts("50", "20", "10", "8", "5", "3", "2", "1", "1", "1", "1", "1")
	supply := decimal.NewFromInt(200)

	summary := TopShares(holders, supply)
	assert.GreaterOrEqual(t, summary.Top5, summary.Top1)
	assert.GreaterOrEqual(t, summary.Top10, summary.Top5)
	assert.LessOrEqual(t, summary.Top10, 100.0)
	assert.GreaterOrEqual(t, summary.Top1, 0.0)
}

func TestTopShares_NonPositiveSupply(t *testing.T) {
	holders := holdersFromAmounts("100")

	for _, supply := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		summary := TopShares(holders, supply)
		assert.Zero(t, summary.Top1)
		assert.Zero(t, summary.Top5)
		assert.Zero(t, summary.Top10)
	}
}

func TestTopShares_EmptyHolderList(t *testing.T) {
	summary := TopShares(nil, decimal.NewFromInt(1000))
	assert.Zero(t, summary.Top1)
	assert.Zero(t, summary.Top5)
	assert.Zero(t, summary.Top10)
}
