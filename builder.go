package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	clock         Clock
	logger        *zap.Logger
	notifier      notify.Notifier
	hasher        password.Hasher
	authenticator mfa.Authenticator
	avatars       avatar.Storage
	exchanger     oauth.Exchanger
	providers     []oauth.Provider
	auditSink     AuditSink

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis moves sessions and attempt counters into Redis. Everything else
// stays in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithPasswordHasher replaces the hasher selected by Password.Algorithm. The
// configured pepper still applies.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuthenticator(a mfa.Authenticator) *Builder {
	b.authenticator = a
	return b
}

func (b *Builder) WithAvatarStorage(s avatar.Storage) *Builder {
	b.avatars = s
	return b
}

func (b *Builder) WithOAuthExchanger(x oauth.Exchanger) *Builder {
	b.exchanger = x
	return b
}

// WithOAuthProvider registers p under p.Name, replacing any configured
// provider of the same name.
func (b *Builder) WithOAuthProvider(p oauth.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := clock.OrReal(b.clock)
	issuer := tokens.NewIssuer()

	rdb := b.redis
	if rdb == nil && cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// -------- HASHER --------
	hasher := b.hasher
	if hasher == nil {
		var err error
		hasher, err = newHasher(&cfg)
		if err != nil {
			return nil, err
		}
	}
	hasher = password.NewPeppered(hasher, cfg.Password.Pepper)

	// -------- STORES --------
	users := credentials.NewStore(clk)

	var sessionStore session.Store
	var rateBackend rate.Backend
	if rdb != nil {
		sessionStore = session.NewRedisStore(rdb, cfg.Session.RedisPrefix)
		rateBackend = rate.NewRedisBackend(rdb, cfg.Security.RateRedisPrefix)
	}
	registry := session.NewRegistry(sessionStore, issuer, clk, session.Config{
		AccessTTL:  cfg.Session.AccessTTL,
		RefreshTTL: cfg.Session.RefreshTTL,
	})

	// -------- MFA --------
	auth := b.authenticator
	if auth == nil {
		auth = mfa.TOTP{Issuer: cfg.MFA.Issuer, Clock: clk}
	}

	// -------- OUTBOUND --------
	notifier := b.notifier
	if notifier == nil && cfg.Mail.SMTPHost != "" {
		m, err := notify.NewMailer(notify.MailerConfig{
			SMTP: notify.SMTPConfig{
				Host:     cfg.Mail.SMTPHost,
				Port:     cfg.Mail.SMTPPort,
				TLS:      cfg.Mail.SMTPUseTLS,
				Username: cfg.Mail.SMTPUser,
				Password: cfg.Mail.SMTPPass,
				From:     cfg.Mail.SMTPFrom,
			},
			LinkBaseURL: cfg.Mail.LinkBaseURL,
			RateLimit:   cfg.Mail.RatePerSec,
			Burst:       cfg.Mail.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		notifier = m
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	avatars := b.avatars
	if avatars == nil {
		if cfg.Avatar.S3Bucket != "" {
			s3, err := avatar.NewS3Storage(context.Background(), avatar.S3Config{
				Region:        cfg.Avatar.S3Region,
				Bucket:        cfg.Avatar.S3Bucket,
				Endpoint:      cfg.Avatar.S3Endpoint,
				AccessKey:     cfg.Avatar.S3AccessKey,
				SecretKey:     cfg.Avatar.S3SecretKey,
				PublicBaseURL: cfg.Avatar.BaseURL,
				UsePathStyle:  cfg.Avatar.S3UsePathStyle,
			})
			if err != nil {
				return nil, err
			}
			avatars = s3
		} else {
			avatars = avatar.NewURLStorage(cfg.Avatar.BaseURL)
		}
	}

	// -------- OAUTH --------
	providers, err := collectProviders(cfg.OAuth, b.providers)
	if err != nil {
		return nil, err
	}
	exchanger := b.exchanger
	if exchanger == nil {
		exchanger = oauth.NewHTTPExchanger(nil)
	}

	// -------- SESSION TOKENS --------
	var tokenManager *jwt.Manager
	if cfg.SessionToken.Enabled() {
		tokenManager, err = jwt.NewManager(jwt.Config{
			SigningMethod: jwt.SigningMethod(cfg.SessionToken.SigningMethod),
			Secret:        []byte(cfg.SessionToken.Secret),
			PrivateKey:    cloneBytes(cfg.SessionToken.PrivateKey),
			PublicKey:     cloneBytes(cfg.SessionToken.PublicKey),
			Issuer:        cfg.SessionToken.Issuer,
			Audience:      cfg.SessionToken.Audience,
			KeyID:         cfg.SessionToken.KeyID,
			TTL:           cfg.Session.AccessTTL,
			Clock:         clk,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:        cfg,
		clock:         clk,
		logger:        logger,
		issuer:        issuer,
		users:         users,
		hasher:        hasher,
		limiter:       rate.New(rateBackend, clk, cfg.Security.LockoutDuration),
		sessions:      registry,
		mfa:           mfa.NewManager(auth, issuer, users),
		ledger:        audit.NewLedger(cfg.Audit.LedgerCapacity),
		verifications: stores.NewVerificationStore(),
		resets:        stores.NewResetStore(),
		csrf:          stores.NewCSRFStore(cfg.Security.CSRFCapacity),
		oauthStates:   stores.NewOAuthStateStore(),
		links:         stores.NewLinkStore(),
		providers:     providers,
		exchanger:     exchanger,
		notifier:      notifier,
		avatars:       avatars,
		tokens:        tokenManager,
		metrics:       NewMetrics(cfg.Metrics),
		redis:         rdb,
	}
	if cfg.Audit.Enabled {
		engine.audit = audit.NewDispatcher(audit.DispatcherConfig{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	b.built = true

	return engine, nil
}

func newHasher(cfg *Config) (password.Hasher, error) {
	if cfg.Password.Algorithm == "bcrypt" {
		return password.NewBcrypt(cfg.Password.BcryptCost)
	}
	return password.NewArgon2(cfg.argon2Params())
}

func collectProviders(cfg OAuthConfig, extra []oauth.Provider) (map[string]oauth.Provider, error) {
	out := make(map[string]oauth.Provider)
	redirect := func(name string) string {
		if cfg.RedirectBaseURL == "" {
			return ""
		}
		return strings.TrimRight(cfg.RedirectBaseURL, "/") + "/" + name + "/callback"
	}
	if cfg.GoogleClientID != "" {
		out["google"] = oauth.Google(cfg.GoogleClientID, cfg.GoogleClientSecret, redirect("google"))
	}
	if cfg.GitHubClientID != "" {
		out["github"] = oauth.GitHub(cfg.GitHubClientID, cfg.GitHubClientSecret, redirect("github"))
	}
	for name, p := range cfg.Providers {
		if p.Name == "" {
			p.Name = name
		}
		out[name] = p
	}
	for _, p := range extra {
		out[p.Name] = p
	}
	for _, p := range out {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("oauth provider: %w", err)
		}
	}
	return out, nil
}
