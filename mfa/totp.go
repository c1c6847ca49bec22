package mfa

import (
	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Authenticator generates secrets and checks one-time codes against them.
type Authenticator interface {
	// NewSecret returns a secret and its otpauth:// provisioning URI.
	NewSecret(account string) (secret, uri string, err error)
	Verify(code, secret string) bool
}

const (
	totpPeriod     = 30
	totpSkew       = 1
	totpSecretSize = 32
)

// TOTP is an RFC 6238 Authenticator (SHA1, 6 digits, 30s period, one step
// of skew).
type TOTP struct {
	Issuer string
	Clock  clock.Clock
}

func (t TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (t TOTP) NewSecret(account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.Issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (t TOTP) Verify(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, clock.OrReal(t.Clock).Now().UTC(), t.opts())
	return err == nil && ok
}

// Code returns the current code for secret.
func (t TOTP) Code(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, clock.OrReal(t.Clock).Now().UTC(), t.opts())
}
