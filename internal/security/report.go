// Package security derives the engine's security posture from its effective
// configuration.
package security

import "time"

// PasswordReport describes the active password hashing setup.
type PasswordReport struct {
	Hasher      string
	Peppered    bool
	Memory      uint32
	Time        uint32
	Parallelism uint8
	BcryptCost  int
	MinLength   int
	MaxBytes    int
}

type Report struct {
	Password              PasswordReport
	PolicyRequiresUpper   bool
	PolicyRequiresLower   bool
	PolicyRequiresNumber  bool
	PolicyRequiresSpecial bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	ResetTokenTTL         time.Duration
	RateLimitingActive    bool
	MaxLoginAttempts      int
	MaxOriginAttempts     int
	LockoutDuration       time.Duration
	OAuthStateRequired    bool
	OAuthProviders        int
	SessionTokensEnabled  bool
	SessionTokenAlgorithm string
	SessionBackend        string
	RateLimitBackend      string
	AuditStreaming        bool
	MailDelivery          bool
}

type ReportInput struct {
	Password              PasswordReport
	Pepper                string
	RequireUppercase      bool
	RequireLowercase      bool
	RequireNumbers        bool
	RequireSpecialChars   bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	ResetTokenTTL         time.Duration
	MaxLoginAttempts      int
	MaxOriginAttempts     int
	LockoutDuration       time.Duration
	OAuthRequireState     bool
	OAuthProviders        int
	SessionTokenAlgorithm string
	RedisBacked           bool
	AuditEnabled          bool
	SMTPHost              string
}

func BuildReport(input ReportInput) Report {
	backend := "memory"
	if input.RedisBacked {
		backend = "redis"
	}

	pw := input.Password
	pw.Peppered = input.Pepper != ""

	rateLimiting := input.LockoutDuration > 0 &&
		(input.MaxLoginAttempts > 0 || input.MaxOriginAttempts > 0)

	return Report{
		Password:              pw,
		PolicyRequiresUpper:   input.RequireUppercase,
		PolicyRequiresLower:   input.RequireLowercase,
		PolicyRequiresNumber:  input.RequireNumbers,
		PolicyRequiresSpecial: input.RequireSpecialChars,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		ResetTokenTTL:         input.ResetTokenTTL,
		RateLimitingActive:    rateLimiting,
		MaxLoginAttempts:      input.MaxLoginAttempts,
		MaxOriginAttempts:     input.MaxOriginAttempts,
		LockoutDuration:       input.LockoutDuration,
		OAuthStateRequired:    input.OAuthRequireState,
		OAuthProviders:        input.OAuthProviders,
		SessionTokensEnabled:  input.SessionTokenAlgorithm != "",
		SessionTokenAlgorithm: input.SessionTokenAlgorithm,
		SessionBackend:        backend,
		RateLimitBackend:      backend,
		AuditStreaming:        input.AuditEnabled,
		MailDelivery:          input.SMTPHost != "",
	}
}
