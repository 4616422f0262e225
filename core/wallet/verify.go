package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

// each failure mode is its own error so the caller can tell the user
// exactly what went wrong instead of a generic "verification failed"
var (
	ErrAlreadyVerified   = errors.New("wallet: already verified")
	ErrStaleChallenge    = errors.New("wallet: no active challenge, request a new one")
	ErrChallengeExpired  = errors.New("wallet: challenge expired, request a new one")
	ErrBadAddress        = errors.New("wallet: address is not a valid base58 public key")
	ErrBadSignature      = errors.New("wallet: signature is not valid base58")
	ErrSignatureMismatch = errors.New("wallet: signature does not match the challenge")
)

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const nonceLength = 32

// Verifier runs the challenge/response ownership proof. One outstanding
// challenge per (user, address); a submit consumes it win or lose.
type Verifier struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewVerifier(store Store, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Verifier{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL reports how long an issued challenge stays valid.
func (v *Verifier) TTL() time.Duration {
	return v.ttl
}

// RequestChallenge issues a fresh nonce for (user, address), replacing any
// prior unconsumed one, and returns the exact text the user must sign.
func (v *Verifier) RequestChallenge(ctx context.Context, userID, address string) (string, error) {
	rec, err := v.store.Get(ctx, userID, address)
	if err != nil {
		return "", err
	}
	if rec.Verified {
		return "", ErrAlreadyVerified
	}

	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}

	now := v.now().Unix()
	challenge := fmt.Sprintf("Verify Telegram Bot Wallet: %s\nNonce: %s\nTimestamp: %d", address, nonce, now)

	if err := v.store.SetChallenge(ctx, userID, address, challenge, now); err != nil {
		return "", err
	}
	return challenge, nil
}

// SubmitSignature checks signature (base58) against the outstanding
// challenge. The challenge is consumed before the signature is looked at, so
// a failed attempt cannot be retried against the same nonce.
func (v *Verifier) SubmitSignature(ctx context.Context, userID, address, signature string) error {
	rec, err := v.store.Get(ctx, userID, address)
	if err != nil {
		return err
	}
	if rec.Verified {
		return ErrAlreadyVerified
	}

	challenge, issuedAt, err := v.store.TakeChallenge(ctx, userID, address)
	if err != nil {
		return err
	}
	if challenge == "" {
		return ErrStaleChallenge
	}
	if v.now().Sub(time.Unix(issuedAt, 0)) > v.ttl {
		return ErrChallengeExpired
	}

	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return ErrBadAddress
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return ErrBadSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(pubkey[:]), []byte(challenge), sig[:]) {
		return ErrSignatureMismatch
	}

	return v.store.MarkVerified(ctx, userID, address, v.now().Unix())
}

func randomNonce() (string, error) {
	buf := make([]byte, nonceLength)
	max := big.NewInt(int64(len(nonceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
