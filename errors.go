package authflow

import (
	"errors"
	"net/http"
)

// ErrorCode is the machine-readable kind of an AuthError.
type ErrorCode string

const (
	CodeInvalidEmail             ErrorCode = "INVALID_EMAIL"
	CodeEmailAlreadyExists       ErrorCode = "EMAIL_ALREADY_EXISTS"
	CodeWeakPassword             ErrorCode = "WEAK_PASSWORD"
	CodeTermsNotAccepted         ErrorCode = "TERMS_NOT_ACCEPTED"
	CodeInvalidCredentials       ErrorCode = "INVALID_CREDENTIALS"
	CodeUserNotFound             ErrorCode = "USER_NOT_FOUND"
	CodeRateLimited              ErrorCode = "RATE_LIMITED"
	CodeMFARequired              ErrorCode = "MFA_REQUIRED"
	CodeInvalidMFACode           ErrorCode = "INVALID_MFA_CODE"
	CodeMFASetupRequired         ErrorCode = "MFA_SETUP_REQUIRED"
	CodeRefreshTokenInvalid      ErrorCode = "REFRESH_TOKEN_INVALID"
	CodeRefreshTokenExpired      ErrorCode = "REFRESH_TOKEN_EXPIRED"
	CodeNotAuthenticated         ErrorCode = "NOT_AUTHENTICATED"
	CodeResetTokenInvalid        ErrorCode = "RESET_TOKEN_INVALID"
	CodeResetTokenExpired        ErrorCode = "RESET_TOKEN_EXPIRED"
	CodeFileTooLarge             ErrorCode = "FILE_TOO_LARGE"
	CodeInvalidFileType          ErrorCode = "INVALID_FILE_TYPE"
	CodeVerificationTokenInvalid ErrorCode = "VERIFICATION_TOKEN_INVALID"
	CodeOAuthError               ErrorCode = "OAUTH_ERROR"
	CodeInvalidToken             ErrorCode = "INVALID_TOKEN"
	CodeServerError              ErrorCode = "SERVER_ERROR"
)

// AuthError is the only error type returned by Engine operations. Status is
// an HTTP status hint for transports.
type AuthError struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError with the same Code, so errors.Is(err, ErrX)
// holds for wrapped and message-customized copies of ErrX.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

func (e *AuthError) wrap(cause error) *AuthError {
	return &AuthError{Code: e.Code, Status: e.Status, Message: e.Message, Err: cause}
}

func (e *AuthError) withMessage(msg string) *AuthError {
	return &AuthError{Code: e.Code, Status: e.Status, Message: msg, Err: e.Err}
}

func newAuthError(code ErrorCode, status int, msg string) *AuthError {
	return &AuthError{Code: code, Status: status, Message: msg}
}

var (
	// Registration.
	ErrInvalidEmail       = newAuthError(CodeInvalidEmail, http.StatusBadRequest, "invalid email format")
	ErrEmailAlreadyExists = newAuthError(CodeEmailAlreadyExists, http.StatusConflict, "email already registered")
	ErrWeakPassword       = newAuthError(CodeWeakPassword, http.StatusBadRequest, "password does not meet requirements")
	ErrTermsNotAccepted   = newAuthError(CodeTermsNotAccepted, http.StatusBadRequest, "terms and conditions must be accepted")

	// Sign-in.
	ErrInvalidCredentials = newAuthError(CodeInvalidCredentials, http.StatusUnauthorized, "invalid credentials")
	ErrUserNotFound       = newAuthError(CodeUserNotFound, http.StatusNotFound, "user not found")
	ErrRateLimited        = newAuthError(CodeRateLimited, http.StatusTooManyRequests, "too many failed attempts")
	ErrMFARequired        = newAuthError(CodeMFARequired, http.StatusUnauthorized, "multi-factor authentication code required")
	ErrInvalidMFACode     = newAuthError(CodeInvalidMFACode, http.StatusUnauthorized, "invalid mfa code")
	ErrMFASetupRequired   = newAuthError(CodeMFASetupRequired, http.StatusBadRequest, "mfa is not set up")

	// Sessions.
	ErrRefreshTokenInvalid = newAuthError(CodeRefreshTokenInvalid, http.StatusUnauthorized, "invalid refresh token")
	ErrRefreshTokenExpired = newAuthError(CodeRefreshTokenExpired, http.StatusUnauthorized, "refresh token expired")
	ErrNotAuthenticated    = newAuthError(CodeNotAuthenticated, http.StatusUnauthorized, "not authenticated")
	ErrInvalidToken        = newAuthError(CodeInvalidToken, http.StatusUnauthorized, "invalid token")

	// Password reset.
	ErrResetTokenInvalid = newAuthError(CodeResetTokenInvalid, http.StatusBadRequest, "invalid or expired reset token")
	ErrResetTokenExpired = newAuthError(CodeResetTokenExpired, http.StatusBadRequest, "reset token has expired")

	// Avatar upload.
	ErrFileTooLarge    = newAuthError(CodeFileTooLarge, http.StatusBadRequest, "file size too large")
	ErrInvalidFileType = newAuthError(CodeInvalidFileType, http.StatusBadRequest, "invalid file type (only JPEG, PNG, GIF allowed)")

	ErrVerificationTokenInvalid = newAuthError(CodeVerificationTokenInvalid, http.StatusBadRequest, "invalid verification token")
	ErrOAuth                    = newAuthError(CodeOAuthError, http.StatusBadRequest, "oauth authentication failed")

	// ErrServerError wraps backend failures. The cause is kept in Err.
	ErrServerError = newAuthError(CodeServerError, http.StatusInternalServerError, "internal server error")
)

// StatusCode returns the status hint carried by err, 200 for nil, and 500 for
// errors that are not an *AuthError.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the ErrorCode carried by err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeServerError
}

func serverError(cause error) error {
	return ErrServerError.wrap(cause)
}
