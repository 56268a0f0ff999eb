package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// LedgerClient is the account-query capability of the ledger collaborator.
// This allows us to mock the RPC layer in tests without hitting real Solana
// nodes.
type LedgerClient interface {
	// MintInfo fetches and decodes the mint account. Returns ErrMintNotFound
	// or ErrInvalidMint for the respective identifier failures.
	MintInfo(ctx context.Context, mint string) (*MintInfo, error)

	// ScanAccountsByMint performs a full server-side-filtered account scan.
	// Token accounts do not carry the mint's decimals, so the caller passes
	// them in and they are stamped onto each record. May return
	// ErrScanLimited when the upstream refuses the query.
	ScanAccountsByMint(ctx context.Context, mint string, decimals uint8) ([]AccountRecord, error)

	// LargestAccounts is the bounded, always-succeeds query returning at
	// most limit individual token accounts (not grouped by owner).
	LargestAccounts(ctx context.Context, mint string, limit int) ([]TokenAccountBalance, error)

	// AccountOwner resolves the party controlling a token account.
	AccountOwner(ctx context.Context, tokenAccount string) (string, error)
}

// MarketClient is the market data collaborator capability.
type MarketClient interface {
	// PoolsForToken returns the trading-venue pools for a token, already
	// restricted to the ledger's chain but not to a specific venue.
	PoolsForToken(ctx context.Context, mint string) ([]MarketPool, error)
}

const (
	// DefaultLargestAccountsLimit matches the RPC hard cap for the
	// getTokenLargestAccounts query.
	DefaultLargestAccountsLimit = 20

	// DefaultOwnerLookupConcurrency bounds the fallback fan-out.
	DefaultOwnerLookupConcurrency = 8
)

// HolderAggregator groups raw token accounts by beneficial owner and produces
// a descending-sorted holder list. It is a pure transformation of the scan
// result: no retries, no caching.
type HolderAggregator struct {
	ledger            LedgerClient
	largestLimit      int
	lookupConcurrency int
	logger            *slog.Logger
}

// NewHolderAggregator creates an aggregator over the given ledger client.
// Non-positive limits fall back to the defaults.
func NewHolderAggregator(ledger LedgerClient, largestLimit, lookupConcurrency int, logger *slog.Logger) *HolderAggregator {
	if largestLimit <= 0 {
		largestLimit = DefaultLargestAccountsLimit
	}
	if lookupConcurrency <= 0 {
		lookupConcurrency = DefaultOwnerLookupConcurrency
	}
	return &HolderAggregator{
		ledger:            ledger,
		largestLimit:      largestLimit,
		lookupConcurrency: lookupConcurrency,
		logger:            logger,
	}
}

// Aggregate builds the holder list for a mint. The primary path is a full
// account scan; when the upstream rejects the scan as too large, it degrades
// to the bounded largest-accounts query and reports UsedFallback so callers
// know downstream percentages only reflect the sample.
func (a *HolderAggregator) Aggregate(ctx context.Context, mint string, decimals uint8) (*HolderSet, error) {
	records, err := a.ledger.ScanAccountsByMint(ctx, mint, decimals)
	if err != nil {
		if !errors.Is(err, ErrScanLimited) {
			return nil, err
		}
		a.logger.WarnContext(ctx, "account scan rejected, degrading to largest-accounts query",
			"mint", mint,
			"limit", a.largestLimit,
		)
		return a.aggregateFromLargest(ctx, mint)
	}

	holders, err := aggregateByOwner(records)
	if err != nil {
		return nil, err
	}

	a.logger.DebugContext(ctx, "aggregated holders from full scan",
		"mint", mint,
		"accounts", len(records),
		"holders", len(holders),
	)

	return &HolderSet{Holders: holders}, nil
}

// aggregateFromLargest implements the degraded path: fetch the bounded
// largest-accounts list, resolve every owner concurrently, then run the same
// per-owner summation over the sample.
//
// The join is all-or-nothing: one failed lookup fails the whole aggregation
// rather than synthesizing a partial list from the successes.
func (a *HolderAggregator) aggregateFromLargest(ctx context.Context, mint string) (*HolderSet, error) {
	balances, err := a.ledger.LargestAccounts(ctx, mint, a.largestLimit)
	if err != nil {
		return nil, fmt.Errorf("largest-accounts fallback failed: %w", errors.Join(ErrScanLimited, err))
	}

	owners := make([]string, len(balances))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(a.lookupConcurrency)
	for i, b := range balances {
		p.Go(func(ctx context.Context) error {
			owner, err := a.ledger.AccountOwner(ctx, b.Address)
			if err != nil {
				return fmt.Errorf("resolve owner of %s: %w", b.Address, err)
			}
			owners[i] = owner
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("largest-accounts fallback failed: %w", errors.Join(ErrScanLimited, err))
	}

	records := make([]AccountRecord, len(balances))
	for i, b := range balances {
		records[i] = AccountRecord{
			Owner:     owners[i],
			AmountRaw: b.AmountRaw,
			Decimals:  b.Decimals,
		}
	}

	holders, err := aggregateByOwner(records)
	if err != nil {
		return nil, err
	}

	a.logger.DebugContext(ctx, "aggregated holders from largest-accounts sample",
		"mint", mint,
		"accounts", len(records),
		"holders", len(holders),
	)

	return &HolderSet{Holders: holders, UsedFallback: true}, nil
}

// aggregateByOwner is the hash-map reduction at the heart of the pipeline:
// normalize each raw amount by 10^decimals, drop zero balances, sum repeated
// owners, and sort descending. The sort is stable, so ties keep the insertion
// order of the owner's first occurrence and the output is deterministic for a
// given input snapshot.
func aggregateByOwner(records []AccountRecord) ([]HolderAggregate, error) {
	index := make(map[string]int, len(records))
	holders := make([]HolderAggregate, 0, len(records))

	for _, rec := range records {
		raw, err := decimal.NewFromString(rec.AmountRaw)
		if err != nil {
			return nil, fmt.Errorf("malformed token amount %q for owner %s: %w", rec.AmountRaw, rec.Owner, err)
		}
		amount := raw.Shift(-int32(rec.Decimals))
		if amount.IsZero() {
			continue
		}
		if i, ok := index[rec.Owner]; ok {
			holders[i].Amount = holders[i].Amount.Add(amount)
			continue
		}
		index[rec.Owner] = len(holders)
		holders = append(holders, HolderAggregate{Owner: rec.Owner, Amount: amount})
	}

	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Amount.GreaterThan(holders[j].Amount)
	})

	return holders, nil
}
