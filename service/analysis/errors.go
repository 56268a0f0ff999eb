package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMint means the mint identifier is not syntactically valid
	// base58. It is rejected before any collaborator call.
	ErrInvalidMint = errors.New("invalid mint address")

	// ErrMintNotFound means the identifier is well formed but no such mint
	// exists on the ledger.
	ErrMintNotFound = errors.New("mint not found")

	// ErrScanLimited means the upstream refused to complete the full account
	// scan because the result set is too large. The aggregator recovers from
	// this via the largest-accounts fallback; it only reaches callers when
	// the fallback itself also failed, in which case the request is
	// retryable.
	ErrScanLimited = errors.New("account scan rejected: result set too large")
)

// TransportError is a network or protocol failure talking to a collaborator.
// Fatal for ledger metadata lookups; the safety scorer degrades to an empty
// pool set when the market collaborator fails.
type TransportError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a collaborator transport
// failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
