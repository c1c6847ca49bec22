package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmArgon2id = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMaxPasswordBytes bounds the KDF input when MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxPasswordBytes rejects longer inputs before running the KDF.
	MaxPasswordBytes int
}

// DefaultArgon2Params returns production parameters (64 MiB, t=3, p=2).
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks the parameters against the accepted floor.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return errors.New("argon2 memory must be >= 8192 KB")
	case p.Time < minTimeCost:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < minParallelism:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return errors.New("argon2 key length must be >= 16")
	case p.MaxPasswordBytes < 0:
		return errors.New("argon2 max password bytes must be >= 0")
	}
	return nil
}

// Argon2 is an argon2id [Hasher].
type Argon2 struct {
	params Argon2Params
	rand   io.Reader
}

// NewArgon2 validates params and returns a hasher.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.MaxPasswordBytes == 0 {
		params.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{params: params, rand: rand.Reader}, nil
}

func (a *Argon2) Name() string { return algorithmArgon2id }

func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.params.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmArgon2id,
		argon2.Version,
		a.params.Memory, a.params.Time, a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}
	if len(password) > a.params.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	phc, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), phc.salt, phc.params.Time, phc.params.Memory, phc.params.Parallelism, phc.params.KeyLength)
	return subtle.ConstantTimeCompare(key, phc.key) == 1, nil
}

func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	phc, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	stored := phc.params
	return a.params.Memory > stored.Memory ||
		a.params.Time > stored.Time ||
		a.params.Parallelism > stored.Parallelism ||
		a.params.KeyLength != stored.KeyLength, nil
}

type phcHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodePHC(encoded string) (phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phcHash{}, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmArgon2id {
		return phcHash{}, errors.New("unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return phcHash{}, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return phcHash{}, errors.New("unsupported argon2 version")
	}

	var (
		out    phcHash
		memory uint32
		time   uint32
		par    uint8
	)
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &par); err != nil || n != 3 {
		return phcHash{}, errors.New("invalid argon2 parameters")
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", memory, time, par) != parts[3] {
		return phcHash{}, errors.New("invalid argon2 parameters")
	}
	if memory < minMemoryKB || time < minTimeCost || par < minParallelism {
		return phcHash{}, errors.New("argon2 parameters below floor")
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return phcHash{}, errors.New("invalid salt")
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return phcHash{}, errors.New("invalid hash")
	}

	out.params = Argon2Params{
		Memory:      memory,
		Time:        time,
		Parallelism: par,
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	out.salt = salt
	out.key = key
	return out, nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
