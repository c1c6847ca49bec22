package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/avatar"
	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/MrEthical07/authflow/internal/credentials"
	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/internal/stores"
	"github.com/MrEthical07/authflow/internal/tokens"
	"github.com/MrEthical07/authflow/jwt"
	"github.com/MrEthical07/authflow/mfa"
	"github.com/MrEthical07/authflow/notify"
	"github.com/MrEthical07/authflow/oauth"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Engine is the authentication facade. It owns every store it reads and is
// safe for concurrent use once built.
//
// Authenticated operations take the caller's access token explicitly; the
// engine holds no notion of a current session.
type Engine struct {
	config Config
	clock  clock.Clock
	logger *zap.Logger
	issuer *tokens.Issuer

	users    *credentials.Store
	hasher   password.Hasher
	limiter  *rate.Limiter
	sessions *session.Registry
	mfa      *mfa.Manager

	ledger *audit.Ledger
	audit  *audit.Dispatcher

	verifications *stores.VerificationStore
	resets        *stores.ResetStore
	csrf          *stores.CSRFStore
	oauthStates   *stores.OAuthStateStore
	links         *stores.LinkStore

	providers map[string]oauth.Provider
	exchanger oauth.Exchanger
	notifier  notify.Notifier
	avatars   avatar.Storage
	tokens    *jwt.Manager

	metrics *Metrics
	redis   redis.UniversalClient
}

// Close flushes the audit dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many entries the audit dispatcher discarded
// because its buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// record appends one entry to the ledger and streams it to the sink.
func (e *Engine) record(ctx context.Context, event, email, userID string, success bool) {
	entry := audit.Entry{
		Event:     event,
		Email:     email,
		UserID:    userID,
		Timestamp: e.clock.Now().UTC(),
		Success:   success,
		IP:        clientIPFromContext(ctx),
	}
	e.ledger.Record(entry)
	e.audit.Emit(ctx, entry)
}

// authenticate resolves accessToken to its session and user.
func (e *Engine) authenticate(ctx context.Context, accessToken string) (session.Record, User, error) {
	rec, err := e.sessions.Lookup(ctx, accessToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return session.Record{}, User{}, ErrNotAuthenticated
		}
		return session.Record{}, User{}, serverError(err)
	}
	user, ok := e.users.FindByID(ctx, rec.UserID)
	if !ok {
		e.logger.Error("authflow: session references missing user",
			zap.String("user_id", rec.UserID),
			zap.String("session_id", rec.ID),
		)
		return session.Record{}, User{}, ErrUserNotFound
	}
	return rec, user, nil
}

func (e *Engine) issueSession(ctx context.Context, userID string, opts session.IssueOptions) (*Session, error) {
	s, err := e.sessions.Issue(ctx, userID, opts)
	if err != nil {
		return nil, serverError(err)
	}
	e.metrics.Inc(MetricSessionCreated)
	return s, nil
}

// recordFailure counts a failed sign-in against the account and, when known,
// the origin. A backend failure does not change the caller's error.
func (e *Engine) recordFailure(ctx context.Context, email, ip string) {
	if err := e.limiter.RecordFailure(ctx, rate.AccountKey(email)); err != nil {
		e.logger.Warn("authflow: record account failure", zap.Error(err))
	}
	if ip == "" {
		return
	}
	if err := e.limiter.RecordFailure(ctx, rate.OriginKey(ip)); err != nil {
		e.logger.Warn("authflow: record origin failure", zap.Error(err))
	}
}

func (e *Engine) clearFailures(ctx context.Context, email, ip string) {
	if err := e.limiter.Clear(ctx, rate.AccountKey(email)); err != nil {
		e.logger.Warn("authflow: clear account counter", zap.Error(err))
	}
	if ip == "" {
		return
	}
	if err := e.limiter.Clear(ctx, rate.OriginKey(ip)); err != nil {
		e.logger.Warn("authflow: clear origin counter", zap.Error(err))
	}
}

func (e *Engine) acceptablePassword(pw string) bool {
	return e.config.Password.passwordAcceptable(pw)
}
