package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/MrEthical07/authflow/internal/tokens"
	"github.com/google/uuid"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Config sets session lifetimes. Zero values fall back to the defaults.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueOptions tags a new session.
type IssueOptions struct {
	RememberMe bool
	// Provider is the OAuth provider that authenticated the session, empty
	// for password sign-in.
	Provider string
}

// Registry issues and tracks session pairs on top of a Store.
type Registry struct {
	store  Store
	issuer *tokens.Issuer
	clock  clock.Clock
	cfg    Config
}

// NewRegistry wires a Registry. A nil store uses a fresh MemoryStore and a
// nil issuer uses crypto/rand.
func NewRegistry(store Store, issuer *tokens.Issuer, clk clock.Clock, cfg Config) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	if issuer == nil {
		issuer = tokens.NewIssuer()
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Registry{
		store:  store,
		issuer: issuer,
		clock:  clock.OrReal(clk),
		cfg:    cfg,
	}
}

// Config returns the effective lifetimes.
func (r *Registry) Config() Config { return r.cfg }

// Issue creates a new access/refresh pair for userID.
func (r *Registry) Issue(ctx context.Context, userID string, opts IssueOptions) (*Session, error) {
	pair, err := r.issuer.GenerateN(2, tokens.SessionLength)
	if err != nil {
		return nil, err
	}
	access, refresh := pair[0], pair[1]

	now := r.clock.Now()
	rec := Record{
		ID:               uuid.NewString(),
		UserID:           userID,
		Provider:         opts.Provider,
		RememberMe:       opts.RememberMe,
		AccessHash:       tokens.Hash(access),
		RefreshHash:      tokens.Hash(refresh),
		CreatedAt:        now,
		ExpiresAt:        now.Add(r.cfg.AccessTTL),
		RefreshExpiresAt: now.Add(r.cfg.RefreshTTL),
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	return &Session{
		ID:               rec.ID,
		UserID:           userID,
		AccessToken:      access,
		RefreshToken:     refresh,
		Provider:         rec.Provider,
		RememberMe:       rec.RememberMe,
		CreatedAt:        rec.CreatedAt,
		ExpiresAt:        rec.ExpiresAt,
		RefreshExpiresAt: rec.RefreshExpiresAt,
	}, nil
}

// Lookup resolves an access token. An expired entry is evicted and reported
// as ErrExpired; its refresh entry is left alone.
func (r *Registry) Lookup(ctx context.Context, accessToken string) (Record, error) {
	if accessToken == "" {
		return Record{}, ErrNotFound
	}
	h := tokens.Hash(accessToken)

	rec, err := r.store.Get(ctx, h)
	if err != nil {
		return Record{}, err
	}
	if !rec.AccessLive(r.clock.Now()) {
		if err := r.store.DeleteAccess(ctx, h); err != nil {
			return Record{}, err
		}
		return Record{}, ErrExpired
	}
	return rec, nil
}

// Validate reports whether accessToken names a live session.
func (r *Registry) Validate(ctx context.Context, accessToken string) (bool, error) {
	_, err := r.Lookup(ctx, accessToken)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
		return false, nil
	}
	return err == nil, err
}

// Refresh consumes refreshToken and issues a replacement pair for the same
// user, carrying over Provider and RememberMe.
func (r *Registry) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshNotFound
	}
	old, err := r.store.ConsumeRefresh(ctx, tokens.Hash(refreshToken), r.clock.Now())
	if err != nil {
		return nil, err
	}
	return r.Issue(ctx, old.UserID, IssueOptions{RememberMe: old.RememberMe, Provider: old.Provider})
}

// Revoke drops accessToken and its refresh token. Unknown tokens are a no-op.
func (r *Registry) Revoke(ctx context.Context, accessToken string) error {
	_, _, err := r.End(ctx, accessToken)
	return err
}

// End is Revoke that also returns the removed record. found is false for
// unknown tokens. An access entry past expiry is still ended, evicted or not,
// so its refresh token goes with it.
func (r *Registry) End(ctx context.Context, accessToken string) (rec Record, found bool, err error) {
	if accessToken == "" {
		return Record{}, false, nil
	}
	rec, err = r.store.Revoke(ctx, tokens.Hash(accessToken))
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// RevokeAllForUser drops every pair held by userID.
func (r *Registry) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	return r.store.DeleteAllForUser(ctx, userID)
}

// Sessions lists the pairs userID still holds.
func (r *Registry) Sessions(ctx context.Context, userID string) ([]Record, error) {
	return r.store.ListForUser(ctx, userID)
}

// Active reports whether sessionID belongs to userID and its access entry is
// unexpired.
func (r *Registry) Active(ctx context.Context, userID, sessionID string) (bool, error) {
	recs, err := r.store.ListForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	now := r.clock.Now()
	for _, rec := range recs {
		if rec.ID == sessionID {
			return rec.AccessLive(now), nil
		}
	}
	return false, nil
}
