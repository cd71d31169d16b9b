// Package middleware contains the HTTP request gate: cookie-based access
// token authentication and role checks.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/jwt"
)

// AccessCookie is the cookie the gate reads the access token from.
const AccessCookie = "accessToken"

type ctxKey struct{}

// AuthInfo is attached to the request context after a successful gate pass.
type AuthInfo struct {
	Account   *authcore.Account
	AccountID string
	SessionID string
}

// AuthFromContext returns the AuthInfo attached by Authenticate, if any.
func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(*AuthInfo)
	return info, ok
}

// Authenticate rejects requests without a valid access token. The three
// failure modes get distinct messages: no token at all, an expired token,
// and everything else.
func Authenticate(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessCookie)
			if err != nil || cookie.Value == "" {
				deny(w, http.StatusUnauthorized, "please login to access this resource")
				return
			}

			account, sessionID, err := engine.ValidateAccess(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					deny(w, http.StatusUnauthorized, "token expired")
					return
				}
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			info := &AuthInfo{
				Account:   account,
				AccountID: account.ID,
				SessionID: sessionID,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
		})
	}
}

// AuthorizeRole allows only the listed roles through. With no roles listed
// every request is denied; there is no implicit allow.
func AuthorizeRole(roles ...authcore.Role) func(http.Handler) http.Handler {
	allowed := make(map[authcore.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := AuthFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "please login to access this resource")
				return
			}

			if _, ok := allowed[info.Account.Role]; !ok {
				deny(w, http.StatusForbidden,
					"role "+string(info.Account.Role)+" is not allowed to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
