package wallet

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps wallet records in process. It exists so the bot can run
// without postgres; the mutex gives the same per-key atomicity the bun store
// gets from its transaction.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]*Record)}
}

func (s *MemoryStore) Get(ctx context.Context, userID, address string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID][address]
	if !ok {
		return nil, ErrNotRegistered
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]Record, 0, len(s.users[userID]))
	for _, rec := range s.users[userID] {
		res = append(res, *rec)
	}
	return res, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, userID, address, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userID] == nil {
		s.users[userID] = make(map[string]*Record)
	}

	if rec, ok := s.users[userID][address]; ok {
		if label != "" {
			rec.Label = label
		}
		return false, nil
	}

	if label == "" {
		label = defaultLabel
	}
	s.users[userID][address] = &Record{
		UserID:  userID,
		Address: address,
		Label:   label,
		AddedAt: time.Now().Unix(),
	}
	return true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, userID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users[userID], address)
	return nil
}

func (s *MemoryStore) SetChallenge(ctx context.Context, userID, address, challenge string, issuedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID][address]
	if !ok {
		return ErrNotRegistered
	}
	rec.Challenge = challenge
	rec.ChallengeIssuedAt = issuedAt
	return nil
}

func (s *MemoryStore) TakeChallenge(ctx context.Context, userID, address string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID][address]
	if !ok {
		return "", 0, ErrNotRegistered
	}

	challenge, issuedAt := rec.Challenge, rec.ChallengeIssuedAt
	rec.Challenge = ""
	rec.ChallengeIssuedAt = 0
	return challenge, issuedAt, nil
}

func (s *MemoryStore) MarkVerified(ctx context.Context, userID, address string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID][address]
	if !ok {
		return ErrNotRegistered
	}
	rec.Verified = true
	rec.VerifiedAt = at
	rec.Challenge = ""
	rec.ChallengeIssuedAt = 0
	return nil
}
