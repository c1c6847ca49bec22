package authflow

import (
	"errors"
	"time"

	"github.com/MrEthical07/authflow/avatar"
	"github.com/MrEthical07/authflow/oauth"
	"github.com/MrEthical07/authflow/password"
	"github.com/caarlos0/env/v10"
)

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "AUTHFLOW_"

// Config is the full engine configuration. Obtain defaults with
// DefaultConfig or LoadConfigFromEnv and adjust before passing it to
// Builder.WithConfig.
type Config struct {
	Password      PasswordConfig      `envPrefix:"PASSWORD_"`
	Session       SessionConfig       `envPrefix:"SESSION_"`
	Security      SecurityConfig      `envPrefix:"SECURITY_"`
	MFA           MFAConfig           `envPrefix:"MFA_"`
	PasswordReset PasswordResetConfig `envPrefix:"PASSWORD_RESET_"`
	OAuth         OAuthConfig         `envPrefix:"OAUTH_"`
	Avatar        AvatarConfig        `envPrefix:"AVATAR_"`
	SessionToken  SessionTokenConfig  `envPrefix:"SESSION_TOKEN_"`
	Mail          MailConfig          `envPrefix:"MAIL_"`
	Audit         AuditConfig         `envPrefix:"AUDIT_"`
	Metrics       MetricsConfig       `envPrefix:"METRICS_"`
	Redis         RedisConfig         `envPrefix:"REDIS_"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the password policy and hashing parameters.
type PasswordConfig struct {
	MinLength           int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUppercase    bool `env:"REQUIRE_UPPERCASE" envDefault:"true"`
	RequireLowercase    bool `env:"REQUIRE_LOWERCASE" envDefault:"false"`
	RequireNumbers      bool `env:"REQUIRE_NUMBERS" envDefault:"true"`
	RequireSpecialChars bool `env:"REQUIRE_SPECIAL_CHARS" envDefault:"false"`
	// Pepper is an application secret mixed into every password before
	// hashing. Changing it invalidates all stored hashes.
	Pepper string `env:"PEPPER"`

	Algorithm        string `env:"ALGORITHM" envDefault:"argon2id"`  // "argon2id" or "bcrypt"
	Memory           uint32 `env:"ARGON2_MEMORY" envDefault:"65536"` // KiB
	Time             uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Parallelism      uint8  `env:"ARGON2_PARALLELISM" envDefault:"2"`
	SaltLength       uint32 `env:"ARGON2_SALT_LENGTH" envDefault:"16"`
	KeyLength        uint32 `env:"ARGON2_KEY_LENGTH" envDefault:"32"`
	BcryptCost       int    `env:"BCRYPT_COST" envDefault:"0"`
	MaxPasswordBytes int    `env:"MAX_BYTES" envDefault:"1024"`
	UpgradeOnLogin   bool   `env:"UPGRADE_ON_LOGIN" envDefault:"true"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig sets session lifetimes.
type SessionConfig struct {
	AccessTTL   time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	RefreshTTL  time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	RedisPrefix string        `env:"REDIS_PREFIX" envDefault:"as"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls failed-attempt lockout and CSRF tokens.
type SecurityConfig struct {
	MaxLoginAttempts  int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	MaxOriginAttempts int           `env:"MAX_ORIGIN_ATTEMPTS" envDefault:"5"`
	LockoutDuration   time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`
	RateRedisPrefix   string        `env:"RATE_REDIS_PREFIX" envDefault:"rl"`
	CSRFCapacity      int           `env:"CSRF_CAPACITY" envDefault:"100"`
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig configures TOTP enrollment.
type MFAConfig struct {
	Issuer string `env:"ISSUER" envDefault:"authflow"`
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig bounds the lifetime of reset tokens.
type PasswordResetConfig struct {
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig configures external identity providers. Google and GitHub are
// registered when their client ids are set; any other provider goes in
// Providers or through Builder.WithOAuthProvider.
type OAuthConfig struct {
	RequireState bool          `env:"REQUIRE_STATE" envDefault:"true"`
	StateTTL     time.Duration `env:"STATE_TTL" envDefault:"10m"`

	// RedirectBaseURL + "/<provider>/callback" is the redirect URI sent
	// to built-in providers.
	RedirectBaseURL    string `env:"REDIRECT_BASE_URL"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	Providers map[string]oauth.Provider
}

/*
====================================
AVATAR CONFIG
====================================
*/

// AvatarConfig selects where uploaded avatars go. When S3Bucket is empty
// avatars are kept in memory under BaseURL.
type AvatarConfig struct {
	MaxBytes int64  `env:"MAX_BYTES" envDefault:"5242880"`
	BaseURL  string `env:"BASE_URL" envDefault:"https://storage.example.com"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

/*
====================================
SESSION TOKEN CONFIG
====================================
*/

// SessionTokenConfig enables signed session-reference tokens. They are
// disabled unless Secret (hs256) or the Ed25519 keys are set.
type SessionTokenConfig struct {
	SigningMethod string `env:"SIGNING_METHOD" envDefault:"hs256"` // "hs256" or "ed25519"
	Secret        string `env:"SECRET"`
	Issuer        string `env:"ISSUER" envDefault:"authflow"`
	Audience      string `env:"AUDIENCE"`
	KeyID         string `env:"KEY_ID"`
	PrivateKey    []byte
	PublicKey     []byte
}

// Enabled reports whether signing material is configured.
func (c SessionTokenConfig) Enabled() bool {
	if c.SigningMethod == "ed25519" {
		return len(c.PrivateKey) > 0 && len(c.PublicKey) > 0
	}
	return c.Secret != ""
}

/*
====================================
MAIL CONFIG
====================================
*/

// MailConfig enables SMTP delivery of verification and reset tokens when
// SMTPHost is set.
type MailConfig struct {
	SMTPHost    string  `env:"SMTP_HOST"`
	SMTPPort    int     `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string  `env:"SMTP_USER"`
	SMTPPass    string  `env:"SMTP_PASS"`
	SMTPFrom    string  `env:"SMTP_FROM"`
	SMTPUseTLS  bool    `env:"SMTP_USE_TLS" envDefault:"false"`
	LinkBaseURL string  `env:"LINK_BASE_URL"`
	RatePerSec  float64 `env:"RATE_PER_SEC" envDefault:"0"`
	RateBurst   int     `env:"RATE_BURST" envDefault:"1"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the security ledger and the optional sink stream.
type AuditConfig struct {
	LedgerCapacity int  `env:"LEDGER_CAPACITY" envDefault:"1000"`
	Enabled        bool `env:"ENABLED" envDefault:"false"`
	BufferSize     int  `env:"BUFFER_SIZE" envDefault:"1024"`
	DropIfFull     bool `env:"DROP_IF_FULL" envDefault:"true"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" envDefault:"false"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS" envDefault:"false"`
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig lets Build dial Redis itself when Builder.WithRedis was not
// called. Addr empty keeps every store in memory.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			MinLength:        8,
			RequireUppercase: true,
			RequireNumbers:   true,
			Algorithm:        "argon2id",
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			UpgradeOnLogin:   true,
		},
		Session: SessionConfig{
			AccessTTL:   time.Hour,
			RefreshTTL:  7 * 24 * time.Hour,
			RedisPrefix: "as",
		},
		Security: SecurityConfig{
			MaxLoginAttempts:  5,
			MaxOriginAttempts: 5,
			LockoutDuration:   15 * time.Minute,
			RateRedisPrefix:   "rl",
			CSRFCapacity:      100,
		},
		MFA: MFAConfig{
			Issuer: "authflow",
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: time.Hour,
		},
		OAuth: OAuthConfig{
			RequireState: true,
			StateTTL:     10 * time.Minute,
		},
		Avatar: AvatarConfig{
			MaxBytes: avatar.DefaultMaxBytes,
			BaseURL:  "https://storage.example.com",
			S3Region: "us-east-1",
		},
		SessionToken: SessionTokenConfig{
			SigningMethod: "hs256",
			Issuer:        "authflow",
		},
		Mail: MailConfig{
			SMTPPort:  587,
			RateBurst: 1,
		},
		Audit: AuditConfig{
			LedgerCapacity: 1000,
			BufferSize:     1024,
			DropIfFull:     true,
		},
	}
}

// LoadConfigFromEnv starts from the defaults and applies AUTHFLOW_*
// variables, e.g. AUTHFLOW_SECURITY_MAX_LOGIN_ATTEMPTS=3.
func LoadConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.SessionToken.PrivateKey = cloneBytes(cfg.SessionToken.PrivateKey)
	out.SessionToken.PublicKey = cloneBytes(cfg.SessionToken.PublicKey)
	if cfg.OAuth.Providers != nil {
		out.OAuth.Providers = make(map[string]oauth.Provider, len(cfg.OAuth.Providers))
		for k, p := range cfg.OAuth.Providers {
			p.Scopes = append([]string(nil), p.Scopes...)
			out.OAuth.Providers[k] = p
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) argon2Params() password.Argon2Params {
	return password.Argon2Params{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxPasswordBytes < c.Password.MinLength {
		return errors.New("Password MaxPasswordBytes must be >= MinLength")
	}
	switch c.Password.Algorithm {
	case "argon2id":
		if err := c.argon2Params().Validate(); err != nil {
			return err
		}
	case "bcrypt":
		if c.Password.MaxPasswordBytes > 72 {
			return errors.New("Password MaxPasswordBytes must be <= 72 with bcrypt")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}

	// Session
	if c.Session.AccessTTL <= 0 {
		return errors.New("Session AccessTTL must be > 0")
	}
	if c.Session.RefreshTTL < c.Session.AccessTTL {
		return errors.New("Session RefreshTTL must be >= AccessTTL")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.MaxOriginAttempts <= 0 {
		return errors.New("Security MaxOriginAttempts must be > 0")
	}
	if c.Security.LockoutDuration <= 0 {
		return errors.New("Security LockoutDuration must be > 0")
	}
	if c.Security.CSRFCapacity <= 0 {
		return errors.New("Security CSRFCapacity must be > 0")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}

	// OAuth
	if c.OAuth.StateTTL <= 0 {
		return errors.New("OAuth StateTTL must be > 0")
	}
	for name, p := range c.OAuth.Providers {
		if p.Name != "" && p.Name != name {
			return errors.New("OAuth provider key must match provider Name")
		}
	}

	// Avatar
	if c.Avatar.MaxBytes <= 0 {
		return errors.New("Avatar MaxBytes must be > 0")
	}
	if c.Avatar.S3Bucket == "" && c.Avatar.BaseURL == "" {
		return errors.New("Avatar BaseURL is required without S3Bucket")
	}

	// Session tokens
	switch c.SessionToken.SigningMethod {
	case "hs256":
		if c.SessionToken.Secret != "" && len(c.SessionToken.Secret) < 32 {
			return errors.New("SessionToken Secret must be at least 32 bytes")
		}
	case "ed25519":
		if (len(c.SessionToken.PrivateKey) == 0) != (len(c.SessionToken.PublicKey) == 0) {
			return errors.New("ed25519 requires both PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported SessionToken signing method")
	}

	// Mail
	if c.Mail.SMTPHost != "" && c.Mail.SMTPFrom == "" {
		return errors.New("Mail SMTPFrom is required when SMTPHost is set")
	}

	// Audit
	if c.Audit.LedgerCapacity <= 0 {
		return errors.New("Audit LedgerCapacity must be > 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
