package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no access entry matches.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned by lookups of an access entry past its expiry.
	ErrExpired = errors.New("session expired")
	// ErrRefreshNotFound is returned when no refresh entry matches.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRefreshExpired is returned when the refresh entry is past its expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRedisUnavailable wraps RedisStore transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store persists session pairs. Implementations must be safe for concurrent
// use and must make ConsumeRefresh atomic: of any number of concurrent calls
// for one refresh hash, at most one succeeds.
type Store interface {
	// Save writes the access entry, the refresh entry, and the user index
	// membership for r as one operation.
	Save(ctx context.Context, r Record) error
	// Get returns the record behind an access hash.
	Get(ctx context.Context, accessHash [32]byte) (Record, error)
	// DeleteAccess hides the access entry from Get. The refresh entry
	// survives.
	DeleteAccess(ctx context.Context, accessHash [32]byte) error
	// Revoke drops the access entry and its paired refresh entry. It still
	// resolves an access hash hidden by DeleteAccess while the refresh entry
	// lives.
	Revoke(ctx context.Context, accessHash [32]byte) (Record, error)
	// ConsumeRefresh deletes the pair behind refreshHash and returns it. A
	// refresh entry expired at now is left in place and reported as
	// ErrRefreshExpired.
	ConsumeRefresh(ctx context.Context, refreshHash [32]byte, now time.Time) (Record, error)
	// ListForUser returns every pair whose refresh entry still exists.
	ListForUser(ctx context.Context, userID string) ([]Record, error)
	// DeleteAllForUser drops every pair for userID and returns how many
	// were removed.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
