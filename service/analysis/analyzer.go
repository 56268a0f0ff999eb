package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DefaultTrustedVenue is the canonical venue whose pools qualify for
// liquidity scoring. Liquidity thresholds apply to the trusted venue only,
// so thin pools on obscure venues cannot mask a low-liquidity token.
const DefaultTrustedVenue = "raydium"

// Options tune the Analyzer. Zero values fall back to defaults.
type Options struct {
	TrustedVenue           string
	LargestAccountsLimit   int
	OwnerLookupConcurrency int
	WhaleMinPct            float64
	WhaleLimit             int
}

// Analyzer wires the collaborator clients to the pure pipeline stages and
// exposes the four analysis operations plus the combined report. Each call
// recomputes from a fresh snapshot; nothing is shared between requests.
type Analyzer struct {
	ledger       LedgerClient
	market       MarketClient
	aggregator   *HolderAggregator
	trustedVenue string
	whaleMinPct  float64
	whaleLimit   int
	logger       *slog.Logger
}

// NewAnalyzer creates an Analyzer over the given collaborators.
func NewAnalyzer(ledger LedgerClient, market MarketClient, opts Options, logger *slog.Logger) *Analyzer {
	if opts.TrustedVenue == "" {
		opts.TrustedVenue = DefaultTrustedVenue
	}
	if opts.WhaleMinPct <= 0 {
		opts.WhaleMinPct = DefaultWhaleMinPct
	}
	if opts.WhaleLimit <= 0 {
		opts.WhaleLimit = DefaultWhaleLimit
	}
	return &Analyzer{
		ledger:       ledger,
		market:       market,
		aggregator:   NewHolderAggregator(ledger, opts.LargestAccountsLimit, opts.OwnerLookupConcurrency, logger),
		trustedVenue: opts.TrustedVenue,
		whaleMinPct:  opts.WhaleMinPct,
		whaleLimit:   opts.WhaleLimit,
		logger:       logger,
	}
}

// Holders returns the aggregated holder list for a mint. The mint is looked
// up first so that an unknown mint fails fast with ErrMintNotFound instead
// of producing an empty scan.
func (a *Analyzer) Holders(ctx context.Context, mint string) (*HolderSet, error) {
	info, err := a.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	return a.aggregator.Aggregate(ctx, mint, info.Decimals)
}

// Concentration returns the top-K supply-share summary for a mint.
func (a *Analyzer) Concentration(ctx context.Context, mint string) (*ConcentrationReport, error) {
	info, err := a.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	set, err := a.aggregator.Aggregate(ctx, mint, info.Decimals)
	if err != nil {
		return nil, err
	}
	return &ConcentrationReport{
		Mint:          mint,
		Supply:        info.Supply(),
		HolderCount:   len(set.Holders),
		Concentration: TopShares(set.Holders, info.Supply()),
		UsedFallback:  set.UsedFallback,
	}, nil
}

// Whales returns holders whose supply share is at least minPct percent,
// together with the concentration over the same holder list. Non-positive
// minPct and limit fall back to the configured defaults.
func (a *Analyzer) Whales(ctx context.Context, mint string, minPct float64, limit int) (*WhaleReport, error) {
	if minPct <= 0 {
		minPct = a.whaleMinPct
	}
	if limit <= 0 {
		limit = a.whaleLimit
	}
	info, err := a.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	set, err := a.aggregator.Aggregate(ctx, mint, info.Decimals)
	if err != nil {
		return nil, err
	}
	report := DetectWhales(set.Holders, info.Supply(), minPct, limit)
	report.UsedFallback = set.UsedFallback
	return report, nil
}

// Safety returns the heuristic risk assessment for a mint. A market data
// failure does not fail the assessment: it degrades to an empty pool set,
// which biases risk upward. A ledger metadata failure is fatal because no
// assessment is possible without the authority flags.
func (a *Analyzer) Safety(ctx context.Context, mint string) (*SafetyAssessment, error) {
	info, err := a.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	pools := a.qualifyingPools(ctx, mint)
	return ScoreSafety(info, pools), nil
}

// Report assembles the full analysis from one holder set, one mint record
// and one pool list.
func (a *Analyzer) Report(ctx context.Context, mint string) (*TokenReport, error) {
	info, err := a.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}
	set, err := a.aggregator.Aggregate(ctx, mint, info.Decimals)
	if err != nil {
		return nil, err
	}
	pools := a.qualifyingPools(ctx, mint)

	supply := info.Supply()
	whales := DetectWhales(set.Holders, supply, a.whaleMinPct, a.whaleLimit)
	whales.UsedFallback = set.UsedFallback

	return &TokenReport{
		Mint:          mint,
		MintInfo:      info,
		Holders:       set.Holders,
		Concentration: TopShares(set.Holders, supply),
		Whales:        whales,
		Safety:        ScoreSafety(info, pools),
		UsedFallback:  set.UsedFallback,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// qualifyingPools fetches market pools and filters them to the trusted
// venue. Transport failures degrade to an empty list.
func (a *Analyzer) qualifyingPools(ctx context.Context, mint string) []MarketPool {
	pools, err := a.market.PoolsForToken(ctx, mint)
	if err != nil {
		a.logger.WarnContext(ctx, "market data unavailable, scoring without liquidity",
			"mint", mint,
			"error", err,
		)
		return nil
	}
	qualifying := make([]MarketPool, 0, len(pools))
	for _, p := range pools {
		if strings.EqualFold(p.VenueID, a.trustedVenue) {
			qualifying = append(qualifying, p)
		}
	}
	return qualifying
}
