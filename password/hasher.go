package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	// ErrEmptyPassword is returned when asked to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrPasswordTooLong is returned for inputs above the hasher's limit.
	ErrPasswordTooLong = errors.New("password too long")
)

// Hasher turns plaintext passwords into stored hashes and back.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches encoded. A mismatch is
	// (false, nil); errors mean encoded could not be interpreted.
	Verify(password, encoded string) (bool, error)
	// NeedsUpgrade reports whether encoded was produced with weaker
	// parameters than the hasher's current ones.
	NeedsUpgrade(encoded string) (bool, error)
	// Name identifies the algorithm for reporting.
	Name() string
}

// Peppered mixes a secret into every password before delegating.
type Peppered struct {
	inner  Hasher
	pepper []byte
}

// NewPeppered wraps inner. An empty pepper returns inner unchanged.
func NewPeppered(inner Hasher, pepper string) Hasher {
	if pepper == "" {
		return inner
	}
	return &Peppered{inner: inner, pepper: []byte(pepper)}
}

// mix keeps the input to the inner hasher at a fixed 44 bytes, well below
// bcrypt's 72 byte limit.
func (p *Peppered) mix(password string) string {
	mac := hmac.New(sha256.New, p.pepper)
	mac.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (p *Peppered) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return p.inner.Hash(p.mix(password))
}

func (p *Peppered) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}
	return p.inner.Verify(p.mix(password), encoded)
}

func (p *Peppered) NeedsUpgrade(encoded string) (bool, error) {
	return p.inner.NeedsUpgrade(encoded)
}

func (p *Peppered) Name() string { return p.inner.Name() + "+pepper" }
