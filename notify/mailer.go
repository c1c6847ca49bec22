package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// SMTPConfig describes the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// MailerConfig configures Mailer. LinkBaseURL is the public origin used to
// build verification and reset links.
type MailerConfig struct {
	SMTP        SMTPConfig
	LinkBaseURL string
	// Messages per second allowed out of the process. Zero means unlimited.
	RateLimit float64
	Burst     int
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends plain-text emails over SMTP.
type Mailer struct {
	from    string
	baseURL string
	client  sender
	limiter *rate.Limiter
	verifyT *template.Template
	resetT  *template.Template
}

const verificationBody = `Welcome!

Confirm your email address by opening the link below:

{{.Link}}

If you did not create an account you can ignore this message.
`

const resetBody = `A password reset was requested for your account.

Choose a new password within the next hour:

{{.Link}}

If you did not request this you can ignore this message.
`

// NewMailer connects the go-mail client described by cfg.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.SMTP.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if cfg.SMTP.From == "" {
		return nil, errors.New("notify: from address is required")
	}

	timeout := cfg.SMTP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []mail.Option{
		mail.WithTimeout(timeout),
	}
	if cfg.SMTP.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.SMTP.Port))
	}
	if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}
	if cfg.SMTP.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.SMTP.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: create mail client: %w", err)
	}
	return newMailer(cfg, client), nil
}

func newMailer(cfg MailerConfig, client sender) *Mailer {
	m := &Mailer{
		from:    cfg.SMTP.From,
		baseURL: strings.TrimRight(cfg.LinkBaseURL, "/"),
		client:  client,
		verifyT: template.Must(template.New("verify").Parse(verificationBody)),
		resetT:  template.Must(template.New("reset").Parse(resetBody)),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return m
}

func (m *Mailer) SendVerification(ctx context.Context, email, token string) error {
	return m.send(ctx, email, "Verify your email address", m.verifyT, m.link("/verify-email", token))
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.send(ctx, email, "Reset your password", m.resetT, m.link("/reset-password", token))
}

func (m *Mailer) link(path, token string) string {
	return m.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(ctx context.Context, to, subject string, tmpl *template.Template, link string) error {
	if to == "" {
		return errors.New("notify: recipient is required")
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("notify: throttled: %w", err)
		}
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ Link string }{Link: link}); err != nil {
		return fmt.Errorf("notify: render %s: %w", tmpl.Name(), err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("notify: from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notify: to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	return nil
}
