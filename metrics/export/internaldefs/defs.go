// Package internaldefs holds the metric names and bucket bounds shared by the
// Prometheus and OpenTelemetry exporters.
package internaldefs

import (
	"github.com/MrEthical07/authflow"
)

type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricSignUpSuccess, Name: "authflow_signup_success_total", Help: "Successful sign-ups."},
	{ID: authflow.MetricSignUpFailure, Name: "authflow_signup_failure_total", Help: "Rejected sign-ups."},
	{ID: authflow.MetricSignInSuccess, Name: "authflow_signin_success_total", Help: "Successful sign-ins."},
	{ID: authflow.MetricSignInFailure, Name: "authflow_signin_failure_total", Help: "Failed sign-ins."},
	{ID: authflow.MetricSignInRateLimited, Name: "authflow_signin_rate_limited_total", Help: "Sign-ins rejected by a lockout."},
	{ID: authflow.MetricMFARequired, Name: "authflow_mfa_required_total", Help: "Sign-ins that stopped for a second factor."},
	{ID: authflow.MetricMFAFailure, Name: "authflow_mfa_failure_total", Help: "Rejected second-factor codes."},
	{ID: authflow.MetricMFASuccess, Name: "authflow_mfa_success_total", Help: "Accepted second-factor codes."},
	{ID: authflow.MetricBackupCodeUsed, Name: "authflow_backup_code_used_total", Help: "Backup codes consumed."},
	{ID: authflow.MetricBackupCodesRegenerated, Name: "authflow_backup_codes_regenerated_total", Help: "Backup code regenerations."},
	{ID: authflow.MetricRefreshSuccess, Name: "authflow_refresh_success_total", Help: "Successful refresh operations."},
	{ID: authflow.MetricRefreshFailure, Name: "authflow_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authflow.MetricSessionCreated, Name: "authflow_session_created_total", Help: "Created sessions."},
	{ID: authflow.MetricSessionRevoked, Name: "authflow_session_revoked_total", Help: "Revoked sessions."},
	{ID: authflow.MetricSignOut, Name: "authflow_signout_total", Help: "Sign-out operations."},
	{ID: authflow.MetricPasswordResetRequest, Name: "authflow_password_reset_request_total", Help: "Password reset requests."},
	{ID: authflow.MetricPasswordResetConfirmSuccess, Name: "authflow_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: authflow.MetricPasswordResetConfirmFailure, Name: "authflow_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: authflow.MetricPasswordChangeSuccess, Name: "authflow_password_change_success_total", Help: "Successful password changes."},
	{ID: authflow.MetricPasswordChangeFailure, Name: "authflow_password_change_failure_total", Help: "Rejected password changes."},
	{ID: authflow.MetricEmailVerificationSuccess, Name: "authflow_email_verification_success_total", Help: "Successful email verifications."},
	{ID: authflow.MetricEmailVerificationFailure, Name: "authflow_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: authflow.MetricOAuthLogin, Name: "authflow_oauth_login_total", Help: "Completed OAuth sign-ins."},
	{ID: authflow.MetricOAuthFailure, Name: "authflow_oauth_failure_total", Help: "Failed OAuth callbacks."},
	{ID: authflow.MetricAccountDeleted, Name: "authflow_account_deleted_total", Help: "Deleted accounts."},
	{ID: authflow.MetricAvatarUploaded, Name: "authflow_avatar_uploaded_total", Help: "Stored avatar uploads."},
}

var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricSignInLatency, Name: "authflow_signin_latency_seconds", Help: "Sign-in latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
