package tokens

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	iss := NewIssuer()
	for _, n := range []int{1, 8, 16, 32, 100} {
		tok, err := iss.Generate(n)
		require.NoError(t, err)
		assert.Len(t, tok, n)
		for _, c := range tok {
			assert.True(t, strings.ContainsRune(alphabet, c), "unexpected rune %q", c)
		}
	}
}

func TestGenerateRejectsNonPositiveLength(t *testing.T) {
	_, err := NewIssuer().Generate(0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestGenerateNoCollisions(t *testing.T) {
	iss := NewIssuer()
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		tok, err := iss.Generate(SessionLength)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestGenerateSkipsBiasedBytes(t *testing.T) {
	// 0xff is above the rejection threshold; 0x00 maps to 'A', 0x01 to 'B'.
	src := bytes.NewReader(append(bytes.Repeat([]byte{0xff}, 10), bytes.Repeat([]byte{0x00, 0x01}, 20)...))
	tok, err := NewIssuerWithReader(src).Generate(4)
	require.NoError(t, err)
	assert.Equal(t, "ABAB", tok)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestGenerateSurfacesReaderError(t *testing.T) {
	_, err := NewIssuerWithReader(failingReader{}).Generate(8)
	assert.Error(t, err)
}

func TestHashHexStable(t *testing.T) {
	assert.Equal(t, HashHex("abc"), HashHex("abc"))
	assert.NotEqual(t, HashHex("abc"), HashHex("abd"))
	assert.Len(t, HashHex("abc"), 64)
}
