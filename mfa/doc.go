// Package mfa manages per-user TOTP enrollment and single-use backup codes.
//
// Each user moves through Disabled, PendingVerification, and Enabled. Enroll
// generates a fresh secret and backup codes; the first successful Verify
// while pending activates MFA and sets the user's flag through a
// [UserFlagger]. Code checking is delegated to an [Authenticator]; [TOTP] is
// the default.
package mfa
