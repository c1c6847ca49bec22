package stores

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/authflow/internal/tokens"
)

var (
	// ErrStateNotFound is returned for unknown or already used OAuth states.
	ErrStateNotFound = errors.New("oauth state not found")
	// ErrStateExpired is returned when the state outlived its TTL.
	ErrStateExpired = errors.New("oauth state expired")
	// ErrStateMismatch is returned when the state was issued for another provider.
	ErrStateMismatch = errors.New("oauth state provider mismatch")
)

type oauthState struct {
	provider  string
	expiresAt time.Time
}

// OAuthStateStore tracks outstanding authorization requests.
type OAuthStateStore struct {
	mu     sync.Mutex
	states map[[32]byte]oauthState
}

// NewOAuthStateStore returns an empty store.
func NewOAuthStateStore() *OAuthStateStore {
	return &OAuthStateStore{states: make(map[[32]byte]oauthState)}
}

// Put stores state for provider until expiresAt.
func (s *OAuthStateStore) Put(state, provider string, expiresAt time.Time) {
	h := tokens.Hash(state)
	s.mu.Lock()
	s.states[h] = oauthState{provider: provider, expiresAt: expiresAt}
	s.mu.Unlock()
}

// Consume removes state and checks it against provider and now. The state is
// removed whatever the outcome.
func (s *OAuthStateStore) Consume(state, provider string, now time.Time) error {
	h := tokens.Hash(state)

	s.mu.Lock()
	st, ok := s.states[h]
	delete(s.states, h)
	s.mu.Unlock()

	switch {
	case !ok:
		return ErrStateNotFound
	case !now.Before(st.expiresAt):
		return ErrStateExpired
	case st.provider != provider:
		return ErrStateMismatch
	}
	return nil
}

// Prune drops every state that expired before now.
func (s *OAuthStateStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for h, st := range s.states {
		if !now.Before(st.expiresAt) {
			delete(s.states, h)
			n++
		}
	}
	return n
}

// LinkStore records which sign-in providers are attached to each user.
type LinkStore struct {
	mu    sync.RWMutex
	links map[string]map[string]struct{}
}

// NewLinkStore returns an empty store.
func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[string]map[string]struct{})}
}

// Link attaches provider to userID. Linking twice is a no-op.
func (s *LinkStore) Link(userID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.links[userID]
	if !ok {
		set = make(map[string]struct{}, 1)
		s.links[userID] = set
	}
	set[provider] = struct{}{}
}

// Providers returns the providers linked to userID in sorted order.
func (s *LinkStore) Providers(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.links[userID]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether provider is linked to userID.
func (s *LinkStore) Has(userID, provider string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[userID][provider]
	return ok
}

// Forget removes every link for userID.
func (s *LinkStore) Forget(userID string) {
	s.mu.Lock()
	delete(s.links, userID)
	s.mu.Unlock()
}
