package authflow

import (
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/credentials"
	"github.com/MrEthical07/authflow/mfa"
	"github.com/MrEthical07/authflow/session"
)

// User is the caller-facing account view. It never carries a password hash.
type User = credentials.User

// Profile and Preferences are the optional descriptive fields of a User.
type (
	Profile     = credentials.Profile
	Preferences = credentials.Preferences
)

// PreferencesUpdate changes individual preference fields; nil fields are
// kept.
type PreferencesUpdate = credentials.PreferencesPatch

// Session is an issued access/refresh pair.
type Session = session.Session

// MFASetup is returned once by EnableMFA.
type MFASetup = mfa.Enrollment

// SecurityLogEntry is one security-ledger record.
type SecurityLogEntry = audit.Entry

// AuditSink receives every security-ledger entry when auditing is enabled.
type AuditSink = audit.Sink

// Security event names.
const (
	EventUserRegistered         = audit.EventUserRegistered
	EventLoginSuccess           = audit.EventLoginSuccess
	EventLoginFailed            = audit.EventLoginFailed
	EventLogout                 = audit.EventLogout
	EventEmailVerified          = audit.EventEmailVerified
	EventPasswordResetRequested = audit.EventPasswordResetRequested
	EventPasswordResetSuccess   = audit.EventPasswordResetSuccess
	EventPasswordChanged        = audit.EventPasswordChanged
	EventMFAEnabled             = audit.EventMFAEnabled
	EventMFADisabled            = audit.EventMFADisabled
	EventOAuthLogin             = audit.EventOAuthLogin
	EventAccountDeleted         = audit.EventAccountDeleted
)

// Clock supplies the current time. Expiry and lockout decisions read it.
type Clock interface {
	Now() time.Time
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Email            string
	Password         string
	Name             string
	AcceptTerms      bool
	MarketingConsent bool
}

// SignInRequest is the password sign-in payload. MFACode is required once
// the account has MFA enabled; a backup code is accepted in its place.
type SignInRequest struct {
	Email      string
	Password   string
	MFACode    string
	RememberMe bool
}

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	User    User     `json:"user"`
	Session *Session `json:"session"`
}

// ResetResult is the enumeration-safe response of ResetPassword.
type ResetResult struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// ProfileUpdate lists the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Name        *string
	Bio         *string
	Company     *string
	Location    *string
	Website     *string
	Preferences *PreferencesUpdate
}

// AvatarUpload is an image file to store as the caller's avatar.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OAuthCallback carries the parameters a provider redirects back with.
type OAuthCallback struct {
	Code  string
	State string
}

// SessionTokenClaims is the verified content of a session token.
type SessionTokenClaims struct {
	SessionID string
	UserID    string
	Provider  string
	ExpiresAt time.Time
}

// SessionInfo describes one live session without its tokens.
type SessionInfo struct {
	ID               string    `json:"id"`
	Provider         string    `json:"provider,omitempty"`
	RememberMe       bool      `json:"rememberMe"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

const resetMessage = "Password reset email sent if account exists"
