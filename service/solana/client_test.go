package solana

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintwatch/service/analysis"
)

// mockRPCClient implements RPCClient for testing without a real Solana node.
type mockRPCClient struct {
	accountInfo    map[string]*rpc.GetAccountInfoResult
	accountInfoErr error

	programAccounts    rpc.GetProgramAccountsResult
	programAccountsErr error
	gotProgramOpts     *rpc.GetProgramAccountsOpts

	largest    *rpc.GetTokenLargestAccountsResult
	largestErr error

	accountInfoCalls int
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	m.accountInfoCalls++
	if m.accountInfoErr != nil {
		return nil, m.accountInfoErr
	}
	result, ok := m.accountInfo[account.String()]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return result, nil
}

func (m *mockRPCClient) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	m.gotProgramOpts = opts
	if m.programAccountsErr != nil {
		return nil, m.programAccountsErr
	}
	return m.programAccounts, nil
}

func (m *mockRPCClient) GetTokenLargestAccounts(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenLargestAccountsResult, error) {
	if m.largestErr != nil {
		return nil, m.largestErr
	}
	return m.largest, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(mock *mockRPCClient) *Client {
	return NewClient(mock, "test", nil, testLogger())
}

// mintAccountData builds the 82-byte SPL mint layout: COption mint authority,
// supply, decimals, initialized flag, COption freeze authority.
func mintAccountData(mintAuthority, freezeAuthority *solana.PublicKey, supply uint64, decimals uint8, initialized bool) []byte {
	data := make([]byte, 0, 82)
	data = appendCOptionKey(data, mintAuthority)
	data = binary.LittleEndian.AppendUint64(data, supply)
	data = append(data, decimals)
	if initialized {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = appendCOptionKey(data, freezeAuthority)
	return data
}

// tokenAccountData builds the 165-byte SPL token account layout.
func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 0, 165)
	data = append(data, mint.Bytes()...)
	data = append(data, owner.Bytes()...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = appendCOptionKey(data, nil) // delegate
	data = append(data, 1)            // state: initialized
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint64(data, 0) // isNative: none
	data = binary.LittleEndian.AppendUint64(data, 0) // delegated amount
	data = appendCOptionKey(data, nil)               // close authority
	return data
}

func appendCOptionKey(data []byte, key *solana.PublicKey) []byte {
	if key == nil {
		data = binary.LittleEndian.AppendUint32(data, 0)
		return append(data, make([]byte, 32)...)
	}
	data = binary.LittleEndian.AppendUint32(data, 1)
	return append(data, key.Bytes()...)
}

func accountResult(data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: solana.TokenProgramID,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}
}

func TestClient_MintInfo(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	freeze := solana.NewWallet().PublicKey()

	mock := &mockRPCClient{
		accountInfo: map[string]*rpc.GetAccountInfoResult{
			mint.String(): accountResult(mintAccountData(nil, &freeze, 1_000_000, 6, true)),
		},
	}
	client := newTestClient(mock)

	info, err := client.MintInfo(context.Background(), mint.String())
	require.NoError(t, err)

	assert.Equal(t, mint.String(), info.Address)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, "1000000", info.SupplyRaw)
	assert.Nil(t, info.MintAuthority)
	require.NotNil(t, info.FreezeAuthority)
	assert.Equal(t, freeze.String(), *info.FreezeAuthority)
	assert.True(t, info.ImmutableMint())
	assert.True(t, info.CanFreeze())
}

func TestClient_MintInfo_InvalidAddress(t *testing.T) {
	mock := &mockRPCClient{}
	client := newTestClient(mock)

	_, err := client.MintInfo(context.Background(), "not-a-base58-address!!")
	require.ErrorIs(t, err, analysis.ErrInvalidMint)
	assert.Zero(t, mock.accountInfoCalls, "invalid addresses must be rejected before any RPC call")
}

func TestClient_MintInfo_NotFound(t *testing.T) {
	client := newTestClient(&mockRPCClient{accountInfo: map[string]*rpc.GetAccountInfoResult{}})

	_, err := client.MintInfo(context.Background(), solana.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, analysis.ErrMintNotFound)
}

func TestClient_MintInfo_UninitializedMint(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	mock := &mockRPCClient{
		accountInfo: map[string]*rpc.GetAccountInfoResult{
			mint.String(): accountResult(mintAccountData(nil, nil, 0, 0, false)),
		},
	}
	client := newTestClient(mock)

	_, err := client.MintInfo(context.Background(), mint.String())
	require.ErrorIs(t, err, analysis.ErrMintNotFound)
}

func TestClient_ScanAccountsByMint(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	ownerA := solana.NewWallet().PublicKey()
	ownerB := solana.NewWallet().PublicKey()

	mock := &mockRPCClient{
		programAccounts: rpc.GetProgramAccountsResult{
			{
				Pubkey: solana.NewWallet().PublicKey(),
				Account: &rpc.Account{
					Owner: solana.TokenProgramID,
					Data:  rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, ownerA, 500)),
				},
			},
			{
				Pubkey: solana.NewWallet().PublicKey(),
				Account: &rpc.Account{
					Owner: solana.TokenProgramID,
					Data:  rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, ownerB, 250)),
				},
			},
		},
	}
	client := newTestClient(mock)

	records, err := client.ScanAccountsByMint(context.Background(), mint.String(), 6)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, ownerA.String(), records[0].Owner)
	assert.Equal(t, "500", records[0].AmountRaw)
	assert.Equal(t, uint8(6), records[0].Decimals)
	assert.Equal(t, ownerB.String(), records[1].Owner)

	// The scan must be narrowed to token accounts of this mint.
	require.NotNil(t, mock.gotProgramOpts)
	require.Len(t, mock.gotProgramOpts.Filters, 2)
	assert.EqualValues(t, tokenAccountSize, mock.gotProgramOpts.Filters[0].DataSize)
	require.NotNil(t, mock.gotProgramOpts.Filters[1].Memcmp)
	assert.EqualValues(t, mintFieldOffset, mock.gotProgramOpts.Filters[1].Memcmp.Offset)
}

func TestClient_ScanAccountsByMint_ScanLimited(t *testing.T) {
	tests := []struct {
		name string
		err  *jsonrpc.RPCError
	}{
		{
			name: "dedicated error code",
			err:  &jsonrpc.RPCError{Code: -32010, Message: "account index key excluded"},
		},
		{
			name: "too many accounts message",
			err:  &jsonrpc.RPCError{Code: -32602, Message: "Too many accounts requested"},
		},
		{
			name: "secondary index exclusion message",
			err:  &jsonrpc.RPCError{Code: -32602, Message: "Mint excluded from account secondary indexes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&mockRPCClient{programAccountsErr: tt.err})

			_, err := client.ScanAccountsByMint(context.Background(), solana.NewWallet().PublicKey().String(), 6)
			require.ErrorIs(t, err, analysis.ErrScanLimited)
		})
	}
}

func TestClient_ScanAccountsByMint_TransportError(t *testing.T) {
	client := newTestClient(&mockRPCClient{programAccountsErr: assert.AnError})

	_, err := client.ScanAccountsByMint(context.Background(), solana.NewWallet().PublicKey().String(), 6)
	require.Error(t, err)
	assert.NotErrorIs(t, err, analysis.ErrScanLimited)
	assert.True(t, analysis.IsTransport(err))
}

func TestClient_LargestAccounts(t *testing.T) {
	addr1 := solana.NewWallet().PublicKey()
	addr2 := solana.NewWallet().PublicKey()
	addr3 := solana.NewWallet().PublicKey()

	mock := &mockRPCClient{
		largest: &rpc.GetTokenLargestAccountsResult{
			Value: []*rpc.TokenLargestAccountsResult{
				{Address: addr1, UiTokenAmount: rpc.UiTokenAmount{Amount: "700", Decimals: 2}},
				{Address: addr2, UiTokenAmount: rpc.UiTokenAmount{Amount: "300", Decimals: 2}},
				{Address: addr3, UiTokenAmount: rpc.UiTokenAmount{Amount: "100", Decimals: 2}},
			},
		},
	}
	client := newTestClient(mock)

	balances, err := client.LargestAccounts(context.Background(), solana.NewWallet().PublicKey().String(), 2)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, addr1.String(), balances[0].Address)
	assert.Equal(t, "700", balances[0].AmountRaw)
	assert.Equal(t, uint8(2), balances[0].Decimals)
	assert.Equal(t, addr2.String(), balances[1].Address)
}

func TestClient_AccountOwner(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	tokenAccount := solana.NewWallet().PublicKey()

	mock := &mockRPCClient{
		accountInfo: map[string]*rpc.GetAccountInfoResult{
			tokenAccount.String(): accountResult(tokenAccountData(mint, owner, 42)),
		},
	}
	client := newTestClient(mock)

	got, err := client.AccountOwner(context.Background(), tokenAccount.String())
	require.NoError(t, err)
	assert.Equal(t, owner.String(), got)
}

func TestIsScanLimited(t *testing.T) {
	limited := &jsonrpc.RPCError{Code: -32010, Message: "excluded from account secondary indexes"}
	assert.True(t, isScanLimited(limited))
	assert.False(t, isScanLimited(assert.AnError))
}
