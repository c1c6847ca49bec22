package authflow

import (
	"regexp"
	"strings"

	"github.com/MrEthical07/authflow/internal/credentials"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	scriptPattern    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	specialCharacter = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// sanitizeInput strips script blocks and markup tags, then trims.
func sanitizeInput(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// normalizeEmail sanitizes then lower-cases an address supplied by a caller.
func normalizeEmail(email string) string {
	return credentials.NormalizeEmail(sanitizeInput(email))
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// passwordAcceptable applies the configured policy.
func (c PasswordConfig) passwordAcceptable(pw string) bool {
	if len(pw) < c.MinLength || len(pw) > c.MaxPasswordBytes {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		case '0' <= r && r <= '9':
			digit = true
		}
	}
	if c.RequireUppercase && !upper {
		return false
	}
	if c.RequireLowercase && !lower {
		return false
	}
	if c.RequireNumbers && !digit {
		return false
	}
	if c.RequireSpecialChars && !specialCharacter.MatchString(pw) {
		return false
	}
	return true
}
