package solrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

const lamportsPerSol = 1_000_000_000

// Client implements Service on top of a Solana JSON-RPC endpoint.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		rpc:     rpc.New(endpoint),
		timeout: timeout,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// classify folds every upstream failure into one of the three sentinels;
// the raw error only goes to the log, never to the user
func classify(op string, err error) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return ErrNotFound
	}

	logger.Logrus.WithFields(logrus.Fields{"Op": op, "ErrMsg": err}).Error("solana rpc call failed")

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == -32602 { // invalid params
		return ErrInvalidInput
	}

	return ErrUnavailable
}

func parseAddress(address string) (solana.PublicKey, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: bad address %q", ErrInvalidInput, address)
	}
	return pubkey, nil
}

func (c *Client) GetSolBalance(ctx context.Context, address string) (*BalanceResult, error) {
	pubkey, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentFinalized)
	if err != nil {
		return nil, classify("GetBalance", err)
	}

	return &BalanceResult{
		Address:  address,
		Lamports: out.Value,
		Sol:      float64(out.Value) / lamportsPerSol,
	}, nil
}

func (c *Client) GetTokenInfo(ctx context.Context, mint string) (*TokenInfoResult, error) {
	pubkey, err := parseAddress(mint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetTokenSupply(ctx, pubkey, rpc.CommitmentFinalized)
	if err != nil {
		return nil, classify("GetTokenSupply", err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrNotFound
	}

	return &TokenInfoResult{
		Address:  mint,
		Supply:   out.Value.Amount,
		Decimals: out.Value.Decimals,
	}, nil
}

func (c *Client) GetAccountDetails(ctx context.Context, address string) (*AccountResult, error) {
	pubkey, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return nil, classify("GetAccountInfo", err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrNotFound
	}

	return &AccountResult{
		Address:    address,
		Lamports:   out.Value.Lamports,
		Owner:      out.Value.Owner.String(),
		Executable: out.Value.Executable,
		RentEpoch:  rentEpoch(out.Value.RentEpoch),
	}, nil
}

// rent epoch comes back as *big.Int and may be absent
func rentEpoch(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}

func (c *Client) GetLatestBlock(ctx context.Context) (*BlockResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, classify("GetLatestBlockhash", err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrUnavailable
	}

	return &BlockResult{
		Blockhash:            out.Value.Blockhash.String(),
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

func (c *Client) GetNetworkStatus(ctx context.Context) (*NetworkStatusResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetVersion(ctx)
	if err != nil {
		return nil, classify("GetVersion", err)
	}

	return &NetworkStatusResult{
		SolanaCore: out.SolanaCore,
		FeatureSet: uint64(out.FeatureSet),
	}, nil
}

func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature %q", ErrInvalidInput, signature)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &rpc.MaxSupportedTransactionVersion0,
	})
	if err != nil {
		return nil, classify("GetTransaction", err)
	}
	if out == nil {
		return nil, ErrNotFound
	}

	res := &TransactionResult{
		Signature: signature,
		Slot:      out.Slot,
		Success:   true,
	}
	if out.BlockTime != nil {
		res.BlockTime = int64(*out.BlockTime)
	}
	if out.Meta != nil && out.Meta.Err != nil {
		res.Success = false
	}
	return res, nil
}

func (c *Client) GetRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionResult, error) {
	pubkey, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, classify("GetSignaturesForAddress", err)
	}

	// getSignaturesForAddress already returns newest first
	res := make([]TransactionResult, 0, len(out))
	for _, item := range out {
		tx := TransactionResult{
			Signature: item.Signature.String(),
			Slot:      item.Slot,
			Success:   item.Err == nil,
		}
		if item.BlockTime != nil {
			tx.BlockTime = int64(*item.BlockTime)
		}
		res = append(res, tx)
	}
	return res, nil
}

func (c *Client) GetValidators(ctx context.Context, limit int) ([]ValidatorResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.rpc.GetVoteAccounts(ctx, &rpc.GetVoteAccountsOpts{
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, classify("GetVoteAccounts", err)
	}

	current := out.Current
	if len(current) > limit {
		current = current[:limit]
	}

	res := make([]ValidatorResult, 0, len(current))
	for _, v := range current {
		res = append(res, ValidatorResult{
			NodePubkey:     v.NodePubkey.String(),
			VotePubkey:     v.VotePubkey.String(),
			ActivatedStake: float64(v.ActivatedStake) / lamportsPerSol,
			Commission:     uint8(v.Commission),
			LastVote:       uint64(v.LastVote),
		})
	}
	return res, nil
}

func (c *Client) GetTokenAccounts(ctx context.Context, address string) ([]TokenAccountResult, error) {
	pubkey, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	programID := solana.TokenProgramID
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, pubkey, &rpc.GetTokenAccountsConfig{
		ProgramId: &programID,
	}, &rpc.GetTokenAccountsOpts{
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		return nil, classify("GetTokenAccountsByOwner", err)
	}

	res := make([]TokenAccountResult, 0, len(out.Value))
	for _, item := range out.Value {
		res = append(res, TokenAccountResult{Pubkey: item.Pubkey.String()})
	}
	return res, nil
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, classify("GetSlot", err)
	}
	return slot, nil
}
