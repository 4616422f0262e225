package solrpc

import (
	"context"
	"errors"
)

// upstream failures collapsed into three buckets so the caller never
// has to look at raw RPC payloads
var (
	ErrNotFound     = errors.New("solrpc: not found")
	ErrInvalidInput = errors.New("solrpc: invalid input")
	ErrUnavailable  = errors.New("solrpc: rpc unavailable")
)

// DefaultListLimit caps list calls when the caller gives no limit.
const DefaultListLimit = 10

type BalanceResult struct {
	Address  string
	Lamports uint64
	Sol      float64
}

type TokenInfoResult struct {
	Address  string
	Supply   string
	Decimals uint8
}

type AccountResult struct {
	Address    string
	Lamports   uint64
	Owner      string
	Executable bool
	RentEpoch  uint64
}

type BlockResult struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

type NetworkStatusResult struct {
	SolanaCore string
	FeatureSet uint64
}

type TransactionResult struct {
	Signature string
	Slot      uint64
	BlockTime int64
	Success   bool
}

type ValidatorResult struct {
	NodePubkey     string
	VotePubkey     string
	ActivatedStake float64
	Commission     uint8
	LastVote       uint64
}

type TokenAccountResult struct {
	Pubkey string
}

// Service is the read-only Solana surface the dispatcher routes to.
type Service interface {
	GetSolBalance(ctx context.Context, address string) (*BalanceResult, error)
	GetTokenInfo(ctx context.Context, mint string) (*TokenInfoResult, error)
	GetAccountDetails(ctx context.Context, address string) (*AccountResult, error)
	GetLatestBlock(ctx context.Context) (*BlockResult, error)
	GetNetworkStatus(ctx context.Context) (*NetworkStatusResult, error)
	GetTransaction(ctx context.Context, signature string) (*TransactionResult, error)
	GetRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionResult, error)
	GetValidators(ctx context.Context, limit int) ([]ValidatorResult, error)
	GetTokenAccounts(ctx context.Context, address string) ([]TokenAccountResult, error)
	GetSlot(ctx context.Context) (uint64, error)
}
