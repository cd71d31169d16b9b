package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=255"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type newPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=255"`
}

func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadJSON
	}
	return s.validate.Struct(dst)
}

var errBadJSON = errors.New("malformed json body")

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	res, err := s.engine.Register(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cookies.setAuthCookies(w, res.AccessToken, res.RefreshToken)
	respond(w, http.StatusCreated, envelope{
		"message": "account created, verification email sent",
		"user":    res.Account,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.logins.Inc()
	s.cookies.setAuthCookies(w, res.AccessToken, res.RefreshToken)
	respond(w, http.StatusOK, envelope{
		"message": "login successful",
		"user":    res.Account,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		s.writeError(w, r, authcore.ErrUnauthorized)
		return
	}

	res, err := s.engine.Refresh(r.Context(), cookie.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.refreshes.Inc()
	if res.NewRefreshToken != "" {
		s.cookies.setAuthCookies(w, res.AccessToken, res.NewRefreshToken)
	} else {
		s.cookies.setAccessCookie(w, res.AccessToken)
	}
	respondMessage(w, http.StatusOK, "access token refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(accessCookie); err == nil {
		token = cookie.Value
	}

	// engine logout never fails; an unusable token means nothing to revoke
	if err := s.engine.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cookies.clearAuthCookies(w)
	respondMessage(w, http.StatusOK, "logout successful")
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		s.writeError(w, r, authcore.ErrCodeNotFound)
		return
	}

	if _, err := s.engine.VerifyEmail(r.Context(), code); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "email verified")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	if err := s.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	// same shape whether or not the address exists
	respondMessage(w, http.StatusOK, "if the email is registered, a reset link has been sent")
}

func (s *Server) handleVerifyReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token := chi.URLParam(r, "token")

	if err := s.engine.VerifyPasswordReset(r.Context(), id, token); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "reset token valid")
}

func (s *Server) handleCompleteReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token := chi.URLParam(r, "token")

	var req newPasswordRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	if err := s.engine.CompletePasswordReset(r.Context(), id, token, req.Password); err != nil {
		if errors.Is(err, authcore.ErrSessionInvalidationFailed) {
			// the password did change; report success but say sessions remain
			respondMessage(w, http.StatusOK, "password updated, but existing sessions could not be revoked")
			return
		}
		s.writeError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "password updated")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		s.writeError(w, r, authcore.ErrUnauthorized)
		return
	}

	userID := chi.URLParam(r, "userId")
	if userID != info.AccountID && info.Account.Role != authcore.RoleAdmin &&
		info.Account.Role != authcore.RoleSuperAdmin {
		s.writeError(w, r, authcore.ErrUserNotFound)
		return
	}

	if err := s.engine.ResendVerificationEmail(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "verification email sent")
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		s.writeError(w, r, authcore.ErrUnauthorized)
		return
	}

	sessions, err := s.engine.ListSessions(r.Context(), info.AccountID, info.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respond(w, http.StatusOK, envelope{"sessions": sessions})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		s.writeError(w, r, authcore.ErrUnauthorized)
		return
	}

	if err := s.engine.DeleteSession(r.Context(), info.AccountID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "session deleted")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondMessage(w, http.StatusOK, "ok")
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadJSON) {
		s.metrics.observeError(http.StatusBadRequest)
		respondMessage(w, http.StatusBadRequest, "malformed json body")
		return
	}
	s.writeError(w, r, err)
}
