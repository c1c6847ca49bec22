package stores

import (
	"sync"

	"github.com/MrEthical07/authflow/internal/tokens"
)

// VerificationStore maps pending email-verification tokens to addresses.
// Each address has at most one pending token.
type VerificationStore struct {
	mu      sync.Mutex
	byHash  map[[32]byte]string
	byEmail map[string][32]byte
}

// NewVerificationStore returns an empty store.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{
		byHash:  make(map[[32]byte]string),
		byEmail: make(map[string][32]byte),
	}
}

// Put registers token for email, replacing any token issued earlier.
func (s *VerificationStore) Put(email, token string) {
	h := tokens.Hash(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byEmail[email]; ok {
		delete(s.byHash, prev)
	}
	s.byHash[h] = email
	s.byEmail[email] = h
}

// Consume removes token and returns the address it was issued for.
func (s *VerificationStore) Consume(token string) (string, bool) {
	h := tokens.Hash(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.byHash[h]
	if !ok {
		return "", false
	}
	delete(s.byHash, h)
	delete(s.byEmail, email)
	return email, true
}

// Pending reports whether email has an outstanding token.
func (s *VerificationStore) Pending(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[email]
	return ok
}

// DeleteEmail drops any pending token for email.
func (s *VerificationStore) DeleteEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.byEmail[email]; ok {
		delete(s.byHash, h)
		delete(s.byEmail, email)
	}
}
