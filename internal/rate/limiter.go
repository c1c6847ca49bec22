package rate

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
)

const (
	accountPrefix = "al:"
	originPrefix  = "ali:"
)

// AccountKey returns the counter key for an account identifier.
func AccountKey(email string) string { return accountPrefix + email }

// OriginKey returns the counter key for an origin identifier.
func OriginKey(ip string) string { return originPrefix + ip }

// Attempt is the stored state of one counter.
type Attempt struct {
	Count int
	Last  time.Time
}

// Backend persists attempt counters.
type Backend interface {
	// Increment adds one failure at the given time and returns the new state.
	// ttl is a retention hint; backends may drop the key once it passes.
	Increment(ctx context.Context, key string, at time.Time, ttl time.Duration) (Attempt, error)
	Get(ctx context.Context, key string) (Attempt, bool, error)
	Delete(ctx context.Context, key string) error
}

// Limiter applies the lockout rule on top of a Backend.
type Limiter struct {
	backend   Backend
	clock     clock.Clock
	retention time.Duration
}

// New creates a [Limiter]. retention bounds how long a backend keeps a
// counter after its last failure; it should be at least the lockout duration.
func New(backend Backend, clk clock.Clock, retention time.Duration) *Limiter {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Limiter{
		backend:   backend,
		clock:     clock.OrReal(clk),
		retention: retention,
	}
}

// RecordFailure counts one failed attempt against key.
func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	_, err := l.backend.Increment(ctx, key, l.clock.Now(), l.retention)
	return err
}

// Clear resets the counter for key. Called after a successful authentication.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	return l.backend.Delete(ctx, key)
}

// IsLocked reports whether key has reached maxAttempts within the lockout
// window. A counter whose window has elapsed is purged and reported unlocked.
func (l *Limiter) IsLocked(ctx context.Context, key string, maxAttempts int, lockout time.Duration) (bool, error) {
	a, ok, err := l.backend.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if l.clock.Now().Sub(a.Last) >= lockout {
		return false, l.backend.Delete(ctx, key)
	}

	return a.Count >= maxAttempts, nil
}

// Attempts returns the current count for key, zero when absent.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	a, _, err := l.backend.Get(ctx, key)
	return a.Count, err
}
