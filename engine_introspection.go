package authflow

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/internal/rate"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisConfigured bool
	RedisAvailable  bool
	RedisLatency    time.Duration
}

// ListSessions returns the caller's live sessions, oldest first. Token
// material is never included.
func (e *Engine) ListSessions(ctx context.Context, accessToken string) ([]SessionInfo, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	recs, err := e.sessions.Sessions(ctx, user.ID)
	if err != nil {
		return nil, serverError(err)
	}

	now := e.clock.Now()
	out := make([]SessionInfo, 0, len(recs))
	for _, r := range recs {
		if !r.AccessLive(now) {
			continue
		}
		out = append(out, SessionInfo{
			ID:               r.ID,
			Provider:         r.Provider,
			RememberMe:       r.RememberMe,
			CreatedAt:        r.CreatedAt,
			ExpiresAt:        r.ExpiresAt,
			RefreshExpiresAt: r.RefreshExpiresAt,
		})
	}
	return out, nil
}

// SignOutAll revokes every session the caller holds, the calling one
// included, and returns how many were removed.
func (e *Engine) SignOutAll(ctx context.Context, accessToken string) (int, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return 0, err
	}
	n, err := e.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return 0, serverError(err)
	}
	for i := 0; i < n; i++ {
		e.metrics.Inc(MetricSessionRevoked)
	}
	e.metrics.Inc(MetricSignOut)
	e.record(ctx, EventLogout, user.Email, user.ID, true)
	return n, nil
}

// LoginAttempts reports the failed sign-in count held for email.
func (e *Engine) LoginAttempts(ctx context.Context, email string) (int, error) {
	n, err := e.limiter.Attempts(ctx, rate.AccountKey(normalizeEmail(email)))
	if err != nil {
		return 0, serverError(err)
	}
	return n, nil
}

// Health pings Redis when the engine is Redis-backed.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}
	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	return HealthStatus{
		RedisConfigured: true,
		RedisAvailable:  err == nil,
		RedisLatency:    time.Since(start),
	}
}
