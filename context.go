package authflow

import (
	"context"
	"strings"
)

type clientIPContextKey struct{}

// WithClientIP attaches the caller's origin identifier to ctx. SignIn uses it
// as the origin rate-limit key and the security log records it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Any other shape yields ok == false.
func BearerToken(header string) (token string, ok bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
