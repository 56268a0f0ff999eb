package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"mintwatch/service/analysis"
	"mintwatch/service/metrics"
)

// tokenAccountSize is the byte length of an SPL token account.
// Filtering on it keeps getProgramAccounts from matching mints or multisigs.
const tokenAccountSize = 165

// mintFieldOffset is the byte offset of the mint pubkey within a token account.
const mintFieldOffset = 0

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
	) (*rpc.GetAccountInfoResult, error)

	GetProgramAccountsWithOpts(
		ctx context.Context,
		program solana.PublicKey,
		opts *rpc.GetProgramAccountsOpts,
	) (rpc.GetProgramAccountsResult, error)

	GetTokenLargestAccounts(
		ctx context.Context,
		mint solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenLargestAccountsResult, error)
}

// NewRPCClient creates a real RPC client for the given endpoint URL.
func NewRPCClient(endpoint string) *rpc.Client {
	return rpc.New(endpoint)
}

// Client provides mint and token-account reads against the Solana ledger.
// It wraps the RPC client with domain-specific operations and implements
// analysis.LedgerClient.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// MintInfo fetches and decodes the mint account for the given address.
// Returns analysis.ErrInvalidMint for addresses that are not valid base58
// pubkeys and analysis.ErrMintNotFound when no initialized mint exists there.
func (c *Client) MintInfo(ctx context.Context, mint string) (*analysis.MintInfo, error) {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", analysis.ErrInvalidMint, mint)
	}

	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, pk)
	c.recordRPC("GetAccountInfo", start, err)

	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrMintNotFound, mint)
		}
		return nil, &analysis.TransportError{Collaborator: "solana-rpc", Op: "GetAccountInfo", Err: err}
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("%w: %s", analysis.ErrMintNotFound, mint)
	}

	data := result.Value.Data.GetBinary()
	var decoded token.Mint
	if err := bin.NewBinDecoder(data).Decode(&decoded); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode mint account",
			"mint", mint,
			"data_len", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("%w: account %s is not a token mint", analysis.ErrMintNotFound, mint)
	}
	if !decoded.IsInitialized {
		return nil, fmt.Errorf("%w: mint %s is not initialized", analysis.ErrMintNotFound, mint)
	}

	info := &analysis.MintInfo{
		Address:       mint,
		Decimals:      decoded.Decimals,
		SupplyRaw:     strconv.FormatUint(decoded.Supply, 10),
		IsInitialized: decoded.IsInitialized,
	}
	if decoded.MintAuthority != nil {
		s := decoded.MintAuthority.String()
		info.MintAuthority = &s
	}
	if decoded.FreezeAuthority != nil {
		s := decoded.FreezeAuthority.String()
		info.FreezeAuthority = &s
	}

	c.logger.DebugContext(ctx, "fetched mint info",
		"mint", mint,
		"decimals", info.Decimals,
		"supply", info.SupplyRaw,
		"mint_authority_set", info.MintAuthority != nil,
		"freeze_authority_set", info.FreezeAuthority != nil,
	)
	return info, nil
}

// ScanAccountsByMint enumerates every token account holding the given mint
// via getProgramAccounts. The decimals parameter is stamped onto each record
// because token accounts do not carry it.
//
// When the RPC node rejects the scan as too large, the returned error wraps
// analysis.ErrScanLimited so callers can switch to the largest-accounts
// fallback.
func (c *Client) ScanAccountsByMint(ctx context.Context, mint string, decimals uint8) ([]analysis.AccountRecord, error) {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", analysis.ErrInvalidMint, mint)
	}

	opts := &rpc.GetProgramAccountsOpts{
		Encoding: solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{DataSize: tokenAccountSize},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: mintFieldOffset,
				Bytes:  solana.Base58(pk.Bytes()),
			}},
		},
	}

	start := time.Now()
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, solana.TokenProgramID, opts)
	c.recordRPC("GetProgramAccounts", start, err)

	if err != nil {
		if isScanLimited(err) {
			c.logger.InfoContext(ctx, "full account scan rejected by RPC node",
				"mint", mint,
				"error", err,
			)
			return nil, fmt.Errorf("getProgramAccounts rejected for mint %s: %w", mint, analysis.ErrScanLimited)
		}
		return nil, &analysis.TransportError{Collaborator: "solana-rpc", Op: "GetProgramAccounts", Err: err}
	}

	records := make([]analysis.AccountRecord, 0, len(accounts))
	for _, acct := range accounts {
		if acct == nil || acct.Account == nil {
			continue
		}
		var decoded token.Account
		if err := bin.NewBinDecoder(acct.Account.Data.GetBinary()).Decode(&decoded); err != nil {
			c.logger.WarnContext(ctx, "skipping undecodable token account",
				"account", acct.Pubkey.String(),
				"error", err,
			)
			continue
		}
		records = append(records, analysis.AccountRecord{
			Owner:     decoded.Owner.String(),
			AmountRaw: strconv.FormatUint(decoded.Amount, 10),
			Decimals:  decimals,
		})
	}

	c.logger.DebugContext(ctx, "scanned token accounts",
		"mint", mint,
		"account_count", len(records),
	)
	return records, nil
}

// LargestAccounts returns the largest token accounts for the mint, capped at
// limit. The RPC method itself never returns more than 20 entries.
func (c *Client) LargestAccounts(ctx context.Context, mint string, limit int) ([]analysis.TokenAccountBalance, error) {
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", analysis.ErrInvalidMint, mint)
	}

	start := time.Now()
	result, err := c.rpc.GetTokenLargestAccounts(ctx, pk, rpc.CommitmentFinalized)
	c.recordRPC("GetTokenLargestAccounts", start, err)

	if err != nil {
		return nil, &analysis.TransportError{Collaborator: "solana-rpc", Op: "GetTokenLargestAccounts", Err: err}
	}
	if result == nil {
		return nil, &analysis.TransportError{
			Collaborator: "solana-rpc",
			Op:           "GetTokenLargestAccounts",
			Err:          errors.New("empty response"),
		}
	}

	balances := make([]analysis.TokenAccountBalance, 0, len(result.Value))
	for _, entry := range result.Value {
		if entry == nil {
			continue
		}
		balances = append(balances, analysis.TokenAccountBalance{
			Address:   entry.Address.String(),
			AmountRaw: entry.Amount,
			Decimals:  entry.Decimals,
		})
		if len(balances) == limit {
			break
		}
	}
	return balances, nil
}

// AccountOwner resolves a token account address to its beneficial owner
// wallet.
func (c *Client) AccountOwner(ctx context.Context, tokenAccount string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(tokenAccount)
	if err != nil {
		return "", fmt.Errorf("invalid token account address %q: %w", tokenAccount, err)
	}

	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, pk)
	c.recordRPC("GetAccountInfo", start, err)

	if err != nil {
		return "", &analysis.TransportError{Collaborator: "solana-rpc", Op: "GetAccountInfo", Err: err}
	}
	if result == nil || result.Value == nil {
		return "", fmt.Errorf("token account %s not found", tokenAccount)
	}

	var decoded token.Account
	if err := bin.NewBinDecoder(result.Value.Data.GetBinary()).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode token account %s: %w", tokenAccount, err)
	}
	return decoded.Owner.String(), nil
}

func (c *Client) recordRPC(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// isScanLimited reports whether the RPC error means the node refused a full
// getProgramAccounts scan. Public mainnet nodes reject large scans either
// with a dedicated error code or with an index-exclusion message.
func isScanLimited(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == -32010 {
		return true
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "too many accounts") ||
		strings.Contains(msg, "excluded from account secondary indexes") ||
		strings.Contains(msg, "scan aborted")
}
