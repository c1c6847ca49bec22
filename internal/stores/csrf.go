package stores

import (
	"crypto/subtle"
	"sync"

	"github.com/MrEthical07/authflow/internal/tokens"
)

// DefaultCSRFCapacity is the number of CSRF tokens kept before the oldest is
// evicted.
const DefaultCSRFCapacity = 100

// CSRFStore keeps the most recently issued CSRF tokens in insertion order.
type CSRFStore struct {
	mu       sync.Mutex
	capacity int
	order    [][32]byte
	set      map[[32]byte]struct{}
}

// NewCSRFStore returns a store bounded to capacity tokens (DefaultCSRFCapacity
// when capacity <= 0).
func NewCSRFStore(capacity int) *CSRFStore {
	if capacity <= 0 {
		capacity = DefaultCSRFCapacity
	}
	return &CSRFStore{
		capacity: capacity,
		order:    make([][32]byte, 0, capacity),
		set:      make(map[[32]byte]struct{}, capacity),
	}
}

// Add registers token, evicting the oldest tokens beyond capacity.
func (s *CSRFStore) Add(token string) {
	h := tokens.Hash(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[h]; ok {
		return
	}
	s.set[h] = struct{}{}
	s.order = append(s.order, h)

	for len(s.order) > s.capacity {
		delete(s.set, s.order[0])
		s.order = s.order[1:]
	}
}

// Valid reports whether token is one of the retained tokens. Every retained
// digest is compared so timing does not depend on the match position.
func (s *CSRFStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	h := tokens.Hash(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	found := 0
	for _, stored := range s.order {
		found |= subtle.ConstantTimeCompare(stored[:], h[:])
	}
	return found == 1
}

// Len reports the number of retained tokens.
func (s *CSRFStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
