package authflow

import (
	"context"

	"github.com/MrEthical07/authflow/internal/tokens"
	"github.com/MrEthical07/authflow/jwt"
)

var errSessionTokensDisabled = ErrServerError.withMessage("session tokens are not configured")

// CSRFToken issues a token for double-submit checks. Only the most recent
// tokens are kept (Security.CSRFCapacity).
func (e *Engine) CSRFToken(_ context.Context) (string, error) {
	token, err := e.issuer.Generate(tokens.CSRFLength)
	if err != nil {
		return "", serverError(err)
	}
	e.csrf.Add(token)
	return token, nil
}

func (e *Engine) ValidateCSRFToken(_ context.Context, token string) bool {
	return e.csrf.Valid(token)
}

// SecurityLog returns the ledger entries recorded for email, oldest first.
// email is normalized the same way sign-up stores it.
func (e *Engine) SecurityLog(_ context.Context, email string) []SecurityLogEntry {
	return e.ledger.Query(normalizeEmail(email))
}

// IssueSessionToken signs a JWT that references the caller's session. It
// carries no authority of its own: ParseSessionToken rejects it once the
// session ends.
func (e *Engine) IssueSessionToken(ctx context.Context, accessToken string) (string, error) {
	if e.tokens == nil {
		return "", errSessionTokensDisabled
	}
	rec, _, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return "", err
	}
	signed, err := e.tokens.Issue(jwt.Ref{
		UserID:    rec.UserID,
		SessionID: rec.ID,
		Provider:  rec.Provider,
		ExpiresAt: rec.ExpiresAt,
	})
	if err != nil {
		return "", serverError(err)
	}
	return signed, nil
}

// ParseSessionToken verifies a token from IssueSessionToken and checks that
// the session it references is still active.
func (e *Engine) ParseSessionToken(ctx context.Context, token string) (SessionTokenClaims, error) {
	if e.tokens == nil {
		return SessionTokenClaims{}, errSessionTokensDisabled
	}
	claims, err := e.tokens.Parse(token)
	if err != nil {
		return SessionTokenClaims{}, ErrInvalidToken.wrap(err)
	}

	active, err := e.sessions.Active(ctx, claims.UID, claims.SID)
	if err != nil {
		return SessionTokenClaims{}, serverError(err)
	}
	if !active {
		return SessionTokenClaims{}, ErrInvalidToken
	}

	out := SessionTokenClaims{
		SessionID: claims.SID,
		UserID:    claims.UID,
		Provider:  claims.Provider,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
