// Package stores holds the short-lived records behind the engine's token
// flows: email verification, password reset, CSRF, OAuth state, and OAuth
// provider links.
//
// # Design
//
// Every store is an in-process map guarded by its own mutex. Secrets are
// keyed by their SHA-256 digest so plaintext tokens never sit in memory
// longer than the call that handles them. Single-use records are removed by
// the call that consumes them.
//
// # What this package must NOT do
//
//   - Generate tokens or make authentication decisions.
//   - Log or expose plaintext secrets.
package stores
