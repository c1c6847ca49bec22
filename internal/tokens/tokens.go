// Package tokens issues opaque random credentials and derives the hashes that
// stores use as lookup keys. Plaintext tokens are handed to callers once and
// never persisted.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Largest multiple of len(alphabet) that fits in a byte. Bytes at or above it
// are rejected so every character is equally likely.
const rejectAbove = 256 - (256 % len(alphabet))

// Default lengths for the credential kinds handed out by the engine.
const (
	SessionLength    = 32
	VerifyLength     = 32
	CSRFLength       = 32
	StateLength      = 16
	BackupCodeLength = 8
)

// ErrInvalidLength is returned for non-positive lengths.
var ErrInvalidLength = errors.New("token length must be > 0")

// Issuer draws alphanumeric tokens from a cryptographically secure source.
type Issuer struct {
	random io.Reader
}

// NewIssuer returns an Issuer reading from crypto/rand.
func NewIssuer() *Issuer {
	return &Issuer{random: rand.Reader}
}

// NewIssuerWithReader returns an Issuer reading from r. Intended for tests.
func NewIssuerWithReader(r io.Reader) *Issuer {
	if r == nil {
		r = rand.Reader
	}
	return &Issuer{random: r}
}

// Generate returns a token of exactly length characters.
func (i *Issuer) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+8)
	for len(out) < length {
		if _, err := io.ReadFull(i.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// GenerateN returns n tokens of the given length.
func (i *Issuer) GenerateN(n, length int) ([]string, error) {
	out := make([]string, 0, n)
	for k := 0; k < n; k++ {
		tok, err := i.Generate(length)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// Hash returns the SHA-256 digest of token.
func Hash(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// HashHex returns the hex-encoded SHA-256 digest of token.
func HashHex(token string) string {
	h := Hash(token)
	return hex.EncodeToString(h[:])
}
