// Package jwt signs and verifies session-reference tokens.
//
// A session-reference token is a JWT naming a session (sid), its user (uid),
// and the provider that authenticated it. It carries no authority of its own:
// callers must still confirm that the referenced session is active.
package jwt
