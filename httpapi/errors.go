package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/jwt"
)

// writeError translates engine errors into status codes and envelope
// messages. Raw error detail never reaches the client for 500s; it is only
// logged. Any failure on the refresh path additionally clears both auth
// cookies so the client stops replaying a dead token.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.URL.Path == refreshPath {
		s.cookies.clearAuthCookies(w)
	}

	status, message := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}

	s.metrics.observeError(status)
	respondMessage(w, status, message)
}

func classify(err error) (int, string) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, "invalid request: " + vErrs[0].Field() + " failed on " + vErrs[0].Tag()
	}

	switch {
	case errors.Is(err, authcore.ErrEmailExists):
		return http.StatusConflict, "email already in use"
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, jwt.ErrTokenInvalid), errors.Is(err, authcore.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, authcore.ErrResetInvalid):
		return http.StatusForbidden, "invalid or expired reset token"
	case errors.Is(err, authcore.ErrCodeNotFound):
		return http.StatusNotFound, "invalid or expired verification code"
	case errors.Is(err, authcore.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, authcore.ErrAlreadyVerified):
		return http.StatusBadRequest, "email is already verified"
	case errors.Is(err, authcore.ErrMailSendFailed):
		return http.StatusBadRequest, "failed to send email, please try again later"
	case errors.Is(err, authcore.ErrPasswordPolicy):
		return http.StatusBadRequest, "password must be at least 8 characters"
	case errors.Is(err, authcore.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests, please try again later"
	default:
		return http.StatusInternalServerError, ""
	}
}
