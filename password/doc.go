// Package password hashes and verifies credentials.
//
// # Hashers
//
//   - [Argon2]: argon2id, PHC string format
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//   - [Bcrypt]: golang.org/x/crypto/bcrypt modular crypt format.
//   - [Peppered]: wraps another [Hasher] and mixes in a server-side secret.
//
// Every hasher reports false (never an error) for an empty stored hash, which
// is how accounts created through OAuth carry no password.
//
// # What this package must NOT do
//
//   - Enforce password policy (the engine does).
//   - Log plaintext passwords.
package password
