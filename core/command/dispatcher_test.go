package command

import (
	"context"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YingqiDuan/trading-telegram-bot/core/solrpc"
	"github.com/YingqiDuan/trading-telegram-bot/core/wallet"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(filepath.Join(os.TempDir(), "tg_bot_test.log"))
	logger.SetLogLevel("error")
	os.Exit(m.Run())
}

// fakeService scripts the RPC surface per test.
type fakeService struct {
	balance       *solrpc.BalanceResult
	tokenInfo     *solrpc.TokenInfoResult
	account       *solrpc.AccountResult
	block         *solrpc.BlockResult
	network       *solrpc.NetworkStatusResult
	transaction   *solrpc.TransactionResult
	recent        []solrpc.TransactionResult
	validators    []solrpc.ValidatorResult
	tokenAccounts []solrpc.TokenAccountResult
	slot          uint64
	err           error

	recentLimit int
}

func (f *fakeService) GetSolBalance(ctx context.Context, address string) (*solrpc.BalanceResult, error) {
	return f.balance, f.err
}

func (f *fakeService) GetTokenInfo(ctx context.Context, mint string) (*solrpc.TokenInfoResult, error) {
	return f.tokenInfo, f.err
}

func (f *fakeService) GetAccountDetails(ctx context.Context, address string) (*solrpc.AccountResult, error) {
	return f.account, f.err
}

func (f *fakeService) GetLatestBlock(ctx context.Context) (*solrpc.BlockResult, error) {
	return f.block, f.err
}

func (f *fakeService) GetNetworkStatus(ctx context.Context) (*solrpc.NetworkStatusResult, error) {
	return f.network, f.err
}

func (f *fakeService) GetTransaction(ctx context.Context, signature string) (*solrpc.TransactionResult, error) {
	return f.transaction, f.err
}

func (f *fakeService) GetRecentTransactions(ctx context.Context, address string, limit int) ([]solrpc.TransactionResult, error) {
	f.recentLimit = limit
	return f.recent, f.err
}

func (f *fakeService) GetValidators(ctx context.Context, limit int) ([]solrpc.ValidatorResult, error) {
	return f.validators, f.err
}

func (f *fakeService) GetTokenAccounts(ctx context.Context, address string) ([]solrpc.TokenAccountResult, error) {
	return f.tokenAccounts, f.err
}

func (f *fakeService) GetSlot(ctx context.Context) (uint64, error) {
	return f.slot, f.err
}

func newTestDispatcher(sol solrpc.Service) (*Dispatcher, wallet.Store) {
	store := wallet.NewMemoryStore()
	verifier := wallet.NewVerifier(store, 10*time.Minute)
	return NewDispatcher(sol, store, verifier, 10), store
}

func TestExecuteSolBalance(t *testing.T) {
	sol := &fakeService{balance: &solrpc.BalanceResult{Address: testAddr, Lamports: 2000000000, Sol: 2}}
	d, _ := newTestDispatcher(sol)

	reply, err := d.Execute(context.Background(), "u1", Command{Kind: KindSolBalance, Address: testAddr})
	require.NoError(t, err)
	assert.Contains(t, reply, "2\\.000000000 SOL")
}

func TestExecuteNotFound(t *testing.T) {
	sol := &fakeService{err: solrpc.ErrNotFound}
	d, _ := newTestDispatcher(sol)

	reply, err := d.Execute(context.Background(), "u1", Command{Kind: KindTransaction, Signature: testSignature()})
	assert.ErrorIs(t, err, solrpc.ErrNotFound)
	assert.Contains(t, reply, "Nothing found")
}

func TestExecuteUnavailable(t *testing.T) {
	sol := &fakeService{err: solrpc.ErrUnavailable}
	d, _ := newTestDispatcher(sol)

	reply, err := d.Execute(context.Background(), "u1", Command{Kind: KindSlot})
	assert.ErrorIs(t, err, solrpc.ErrUnavailable)
	assert.Contains(t, reply, "not responding")
}

func TestExecuteRecentTxClampsLimit(t *testing.T) {
	sol := &fakeService{}
	d, _ := newTestDispatcher(sol)

	_, err := d.Execute(context.Background(), "u1", Command{Kind: KindRecentTx, Address: testAddr, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, sol.recentLimit)

	_, err = d.Execute(context.Background(), "u1", Command{Kind: KindRecentTx, Address: testAddr, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, sol.recentLimit)

	_, err = d.Execute(context.Background(), "u1", Command{Kind: KindRecentTx, Address: testAddr})
	require.NoError(t, err)
	assert.Equal(t, 10, sol.recentLimit)
}

func TestDispatcherDefaultLimit(t *testing.T) {
	sol := &fakeService{}
	store := wallet.NewMemoryStore()
	verifier := wallet.NewVerifier(store, 10*time.Minute)
	d := NewDispatcher(sol, store, verifier, 0)

	_, err := d.Execute(context.Background(), "u1", Command{Kind: KindRecentTx, Address: testAddr})
	require.NoError(t, err)
	assert.Equal(t, solrpc.DefaultListLimit, sol.recentLimit)
}

func TestExecuteWalletLifecycle(t *testing.T) {
	sol := &fakeService{balance: &solrpc.BalanceResult{Address: testAddr, Sol: 1.25}}
	d, _ := newTestDispatcher(sol)
	ctx := context.Background()

	reply, err := d.Execute(ctx, "u1", Command{Kind: KindAddWallet, Address: testAddr, Label: "Main"})
	require.NoError(t, err)
	assert.Contains(t, reply, "saved")

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindAddWallet, Address: testAddr, Label: "Cold"})
	require.NoError(t, err)
	assert.Contains(t, reply, "updated")

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindMyWallets})
	require.NoError(t, err)
	assert.Contains(t, reply, "Cold")

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindMyBalance})
	require.NoError(t, err)
	assert.Contains(t, reply, "1\\.250000000 SOL")

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindRemoveWallet, Address: testAddr})
	require.NoError(t, err)
	assert.Contains(t, reply, "removed")

	// removing again is still a success
	reply, err = d.Execute(ctx, "u1", Command{Kind: KindRemoveWallet, Address: testAddr})
	require.NoError(t, err)
	assert.Contains(t, reply, "removed")

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindMyWallets})
	require.NoError(t, err)
	assert.Contains(t, reply, "No wallets saved yet")
}

func TestExecuteVerifyFlow(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	address := solana.PublicKeyFromBytes(pub).String()

	d, _ := newTestDispatcher(&fakeService{})
	ctx := context.Background()

	// challenge before registration fails
	reply, err := d.Execute(ctx, "u1", Command{Kind: KindVerifyWallet, Address: address})
	require.Error(t, err)
	assert.Contains(t, reply, "not saved yet")

	_, err = d.Execute(ctx, "u1", Command{Kind: KindAddWallet, Address: address})
	require.NoError(t, err)

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindVerifyWallet, Address: address})
	require.NoError(t, err)
	assert.Contains(t, reply, "Sign this exact text")

	challenge := extractChallenge(t, reply)
	sig := solana.SignatureFromBytes(ed25519.Sign(priv, []byte(challenge))).String()

	reply, err = d.Execute(ctx, "u1", Command{Kind: KindVerifyWallet, Address: address, Signature: sig})
	require.NoError(t, err)
	assert.Contains(t, reply, "verified")

	// and a second verification attempt reports it is done already
	reply, err = d.Execute(ctx, "u1", Command{Kind: KindVerifyWallet, Address: address})
	require.Error(t, err)
	assert.Contains(t, reply, "already verified")
}

// the challenge is rendered inside a MarkdownV2 code span
func extractChallenge(t *testing.T, reply string) string {
	t.Helper()
	start := -1
	for i, r := range reply {
		if r == '`' {
			if start < 0 {
				start = i + 1
				continue
			}
			return reply[start:i]
		}
	}
	t.Fatal("no code span in reply")
	return ""
}
