// Package authflow is an in-process authentication and session-lifecycle
// engine: password sign-up and sign-in with lockout, single-use refresh
// rotation, email verification, password reset, TOTP-based MFA with backup
// codes, OAuth sign-in and a bounded security log.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Caller identity
//
// The engine has no current session. Authenticated operations take the
// caller's access token as an argument, and the client origin used for rate
// limiting travels in the context through [WithClientIP].
//
// # Errors
//
// Every error returned by an Engine method is an [*AuthError]. Compare with
// errors.Is against the ErrX sentinels, or map to a response with
// [StatusCode] and [CodeOf].
//
// # Storage
//
// Users, MFA state and the short-lived token stores live in process memory.
// Sessions and attempt counters move to Redis with [Builder.WithRedis].
package authflow
