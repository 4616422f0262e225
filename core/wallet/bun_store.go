package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// BunStore persists wallet records in postgres through bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) Get(ctx context.Context, userID, address string) (*Record, error) {
	rec := new(Record)
	err := s.db.NewSelect().Model(rec).
		Where("user_id = ?", userID).
		Where("address = ?", address).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BunStore) List(ctx context.Context, userID string) ([]Record, error) {
	var recs []Record
	err := s.db.NewSelect().Model(&recs).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// re-storing an existing wallet updates only the label, and only when the
// caller actually supplied one; verification state and any pending
// challenge stay untouched
func (s *BunStore) upsertQuery(rec *Record, label string) *bun.InsertQuery {
	q := s.db.NewInsert().Model(rec).
		On("CONFLICT (user_id, address) DO UPDATE").
		Returning("(xmax = 0)")
	if label == "" {
		q = q.Set("label = bot_user_wallets.label")
	} else {
		q = q.Set("label = EXCLUDED.label")
	}
	return q
}

func (s *BunStore) Upsert(ctx context.Context, userID, address, label string) (bool, error) {
	rec := &Record{
		UserID:  userID,
		Address: address,
		Label:   label,
		AddedAt: time.Now().Unix(),
	}
	if label == "" {
		rec.Label = defaultLabel
	}

	// xmax is zero only on a freshly inserted row, which separates the
	// insert path from the conflict update
	var created bool
	if _, err := s.upsertQuery(rec, label).Exec(ctx, &created); err != nil {
		return false, err
	}
	return created, nil
}

func (s *BunStore) Remove(ctx context.Context, userID, address string) error {
	_, err := s.db.NewDelete().Model((*Record)(nil)).
		Where("user_id = ?", userID).
		Where("address = ?", address).
		Exec(ctx)
	return err
}

func (s *BunStore) SetChallenge(ctx context.Context, userID, address, challenge string, issuedAt int64) error {
	res, err := s.db.NewUpdate().Model((*Record)(nil)).
		Set("challenge = ?", challenge).
		Set("challenge_issued_at = ?", issuedAt).
		Where("user_id = ?", userID).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return err
	}
	num, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if num == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *BunStore) TakeChallenge(ctx context.Context, userID, address string) (string, int64, error) {
	var challenge string
	var issuedAt int64

	// row lock so two concurrent submits cannot both take the same nonce
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rec := new(Record)
		err := tx.NewSelect().Model(rec).
			Where("user_id = ?", userID).
			Where("address = ?", address).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotRegistered
		}
		if err != nil {
			return err
		}

		challenge, issuedAt = rec.Challenge, rec.ChallengeIssuedAt

		_, err = tx.NewUpdate().Model((*Record)(nil)).
			Set("challenge = ''").
			Set("challenge_issued_at = 0").
			Where("user_id = ?", userID).
			Where("address = ?", address).
			Exec(ctx)
		return err
	})
	if err != nil {
		return "", 0, err
	}
	return challenge, issuedAt, nil
}

func (s *BunStore) MarkVerified(ctx context.Context, userID, address string, at int64) error {
	res, err := s.db.NewUpdate().Model((*Record)(nil)).
		Set("verified = TRUE").
		Set("verified_at = ?", at).
		Set("challenge = ''").
		Set("challenge_issued_at = 0").
		Where("user_id = ?", userID).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return err
	}
	num, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if num == 0 {
		return ErrNotRegistered
	}
	return nil
}
