// Package session issues, validates, refreshes, and revokes opaque session
// token pairs.
//
// # Model
//
// A session is an access token (short TTL) paired with a refresh token (long
// TTL). Stores key both entries by the SHA-256 digest of the token; the
// plaintext is only ever returned once, from [Registry.Issue] or
// [Registry.Refresh].
//
// Expiry is judged against the registry's clock. An expired access entry is
// evicted lazily on lookup while its refresh entry stays usable, so a client
// can still refresh after the access token lapses. An evicted access token
// still reaches its pair through [Store.Revoke], so signing out with it drops
// the refresh token too. Refresh tokens are single
// use: [Store.ConsumeRefresh] deletes the pair atomically before a new one is
// issued.
//
// # Binary encoding
//
// [RedisStore] persists records in a compact versioned binary format (see
// [Encode]). Decoding rejects unknown versions.
//
// # What this package must NOT do
//
//   - Import authflow (no upward imports).
//   - Store plaintext tokens.
package session
