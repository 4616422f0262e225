package wallet

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

var (
	ErrNotRegistered = errors.New("wallet: not registered for this user")
)

// Record is one wallet registered by one telegram user. A user may hold
// several records; (user_id, address) is the key. Verified never goes back
// to false except by removing the record.
type Record struct {
	bun.BaseModel `bun:"table:bot_user_wallets"`

	UserID            string `bun:"user_id,pk"`
	Address           string `bun:"address,pk"`
	Label             string `bun:"label"`
	Verified          bool   `bun:"verified"`
	Challenge         string `bun:"challenge"`
	ChallengeIssuedAt int64  `bun:"challenge_issued_at"`
	AddedAt           int64  `bun:"added_at"`
	VerifiedAt        int64  `bun:"verified_at"`
}

// Store is the persistence contract. Challenge handoff must be atomic per
// (user, address): TakeChallenge clears the stored challenge and returns it,
// so a second concurrent submit cannot see the same nonce.
type Store interface {
	Get(ctx context.Context, userID, address string) (*Record, error)
	List(ctx context.Context, userID string) ([]Record, error)
	// Upsert registers the wallet or, if it exists, updates only the label.
	Upsert(ctx context.Context, userID, address, label string) (created bool, err error)
	// Remove deletes the record; removing an absent record is a no-op.
	Remove(ctx context.Context, userID, address string) error
	SetChallenge(ctx context.Context, userID, address, challenge string, issuedAt int64) error
	TakeChallenge(ctx context.Context, userID, address string) (challenge string, issuedAt int64, err error)
	MarkVerified(ctx context.Context, userID, address string, at int64) error
}

const defaultLabel = "My Wallet"
