package authflow

import "github.com/MrEthical07/authflow/internal/security"

type (
	SecurityReport       = security.Report
	PasswordConfigReport = security.PasswordReport
)

// SecurityReport summarizes the effective security posture of the engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	pw := security.PasswordReport{
		Hasher:    e.hasher.Name(),
		MinLength: cfg.Password.MinLength,
		MaxBytes:  cfg.Password.MaxPasswordBytes,
	}
	if cfg.Password.Algorithm == "bcrypt" {
		pw.BcryptCost = cfg.Password.BcryptCost
	} else {
		pw.Memory = cfg.Password.Memory
		pw.Time = cfg.Password.Time
		pw.Parallelism = cfg.Password.Parallelism
	}

	alg := ""
	if e.tokens != nil {
		alg = e.tokens.Method()
	}

	return security.BuildReport(security.ReportInput{
		Password:              pw,
		Pepper:                cfg.Password.Pepper,
		RequireUppercase:      cfg.Password.RequireUppercase,
		RequireLowercase:      cfg.Password.RequireLowercase,
		RequireNumbers:        cfg.Password.RequireNumbers,
		RequireSpecialChars:   cfg.Password.RequireSpecialChars,
		AccessTTL:             cfg.Session.AccessTTL,
		RefreshTTL:            cfg.Session.RefreshTTL,
		ResetTokenTTL:         cfg.PasswordReset.TokenTTL,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		MaxOriginAttempts:     cfg.Security.MaxOriginAttempts,
		LockoutDuration:       cfg.Security.LockoutDuration,
		OAuthRequireState:     cfg.OAuth.RequireState,
		OAuthProviders:        len(e.providers),
		SessionTokenAlgorithm: alg,
		RedisBacked:           e.redis != nil,
		AuditEnabled:          e.audit != nil,
		SMTPHost:              cfg.Mail.SMTPHost,
	})
}
