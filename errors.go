package authcore

import "errors"

// Sentinel errors returned by the engine. Callers translate these to their
// transport's error surface; the engine never formats user-facing messages.
var (
	// ErrEmailExists is returned by Register when the email is taken.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a token is missing, malformed, or
	// refers to a session that no longer exists.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when an account lookup finds nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned when a session lookup finds nothing,
	// including lookups of sessions owned by another account.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCodeNotFound is returned for a verification code that is unknown,
	// expired, or already consumed. The three cases are indistinguishable.
	ErrCodeNotFound = errors.New("verification code not found")

	// ErrResetInvalid is returned for a password reset token that failed
	// verification, including tokens outdated by a password change.
	ErrResetInvalid = errors.New("reset token invalid")

	// ErrAlreadyVerified is returned when re-verifying a verified account.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrMailSendFailed is returned when an outbound email could not be
	// handed to the delivery provider.
	ErrMailSendFailed = errors.New("failed to send email")

	// ErrPasswordPolicy is returned when a new password fails policy.
	ErrPasswordPolicy = errors.New("password does not meet policy")

	// ErrSessionInvalidationFailed indicates a password was changed but
	// revoking the account's existing sessions failed. The password change
	// itself already took effect.
	ErrSessionInvalidationFailed = errors.New("failed to invalidate sessions")

	// ErrRateLimited is returned when an outbound email was requested too
	// many times inside the throttle window.
	ErrRateLimited = errors.New("too many requests")

	// ErrEngineNotReady is returned when the engine is used before all of
	// its dependencies were supplied.
	ErrEngineNotReady = errors.New("engine not fully configured")
)
