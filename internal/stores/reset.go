package stores

import (
	"sync"
	"time"

	"github.com/MrEthical07/authflow/internal/tokens"
)

// ResetRecord is a pending password reset.
type ResetRecord struct {
	Email     string
	CreatedAt time.Time
}

// ResetStore maps password-reset tokens to their records. An address may
// hold several outstanding tokens.
type ResetStore struct {
	mu      sync.Mutex
	records map[[32]byte]ResetRecord
}

// NewResetStore returns an empty store.
func NewResetStore() *ResetStore {
	return &ResetStore{records: make(map[[32]byte]ResetRecord)}
}

// Put stores a reset token created at createdAt.
func (s *ResetStore) Put(token, email string, createdAt time.Time) {
	h := tokens.Hash(token)
	s.mu.Lock()
	s.records[h] = ResetRecord{Email: email, CreatedAt: createdAt}
	s.mu.Unlock()
}

// Get returns the record for token without consuming it.
func (s *ResetStore) Get(token string) (ResetRecord, bool) {
	h := tokens.Hash(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[h]
	return rec, ok
}

// Consume removes token and returns its record. Of concurrent calls for one
// token, at most one reports ok.
func (s *ResetStore) Consume(token string) (ResetRecord, bool) {
	h := tokens.Hash(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[h]
	if ok {
		delete(s.records, h)
	}
	return rec, ok
}

// Delete removes token. Deleting an unknown token is a no-op.
func (s *ResetStore) Delete(token string) {
	h := tokens.Hash(token)
	s.mu.Lock()
	delete(s.records, h)
	s.mu.Unlock()
}

// DeleteEmail removes every token issued for email and returns how many
// were dropped.
func (s *ResetStore) DeleteEmail(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for h, rec := range s.records {
		if rec.Email == email {
			delete(s.records, h)
			n++
		}
	}
	return n
}

// CountFor returns the number of outstanding tokens for email.
func (s *ResetStore) CountFor(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		if rec.Email == email {
			n++
		}
	}
	return n
}
