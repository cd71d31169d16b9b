package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ciphemic/authcore"
	"github.com/ciphemic/authcore/mailer"
)

type staticUsers struct {
	accounts map[string]*authcore.Account
}

func (s *staticUsers) GetByEmail(_ context.Context, email string) (*authcore.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, authcore.ErrUserNotFound
}

func (s *staticUsers) GetByID(_ context.Context, id string) (*authcore.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	return a, nil
}

func (s *staticUsers) Create(_ context.Context, in authcore.CreateAccountInput) (*authcore.Account, error) {
	a := &authcore.Account{
		ID:           "u" + in.Email,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *staticUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.accounts[id].PasswordHash = hash
	return nil
}

func (s *staticUsers) MarkVerified(_ context.Context, id string) error {
	s.accounts[id].Verified = true
	return nil
}

func newGateEngine(t *testing.T) (*authcore.Engine, *staticUsers) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("gate-access")
	cfg.JWT.RefreshSecret = []byte("gate-refresh")
	cfg.JWT.ResetSecret = []byte("gate-reset")
	cfg.Password.Argon2.Memory = 8 * 1024
	cfg.Password.Argon2.Time = 1
	cfg.Password.Argon2.Parallelism = 1

	users := &staticUsers{accounts: make(map[string]*authcore.Account)}
	engine, err := authcore.New(cfg, client, users, &mailer.LogSender{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine, users
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doGet(t *testing.T, h http.Handler, accessToken string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: accessToken})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Error("denial body must have success=false")
	}
	return body.Message
}

func TestAuthenticateNoToken(t *testing.T) {
	engine, _ := newGateEngine(t)
	h := Authenticate(engine)(okHandler())

	rec := doGet(t, h, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if msg := decodeMessage(t, rec); !strings.Contains(msg, "please login") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	engine, _ := newGateEngine(t)
	h := Authenticate(engine)(okHandler())

	rec := doGet(t, h, "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if msg := decodeMessage(t, rec); msg != "invalid token" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	engine, _ := newGateEngine(t)

	res, err := engine.Register(context.Background(), "alice@example.com", "correct horse", "ua")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var got *AuthInfo
	h := Authenticate(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := doGet(t, h, res.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body)
	}
	if got == nil {
		t.Fatal("AuthInfo missing from context")
	}
	if got.AccountID != res.Account.ID || got.Account.Email != "alice@example.com" {
		t.Errorf("unexpected auth info %+v", got)
	}
	if got.SessionID == "" {
		t.Error("session id missing")
	}
}

func TestAuthorizeRole(t *testing.T) {
	engine, users := newGateEngine(t)

	res, err := engine.Register(context.Background(), "alice@example.com", "correct horse", "ua")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	protect := func(roles ...authcore.Role) http.Handler {
		return Authenticate(engine)(AuthorizeRole(roles...)(okHandler()))
	}

	// plain user against an admin-only resource
	rec := doGet(t, protect(authcore.RoleAdmin), res.AccessToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
	if msg := decodeMessage(t, rec); !strings.Contains(msg, "role user is not allowed") {
		t.Errorf("unexpected message %q", msg)
	}

	// matching role passes
	rec = doGet(t, protect(authcore.RoleUser, authcore.RoleAdmin), res.AccessToken)
	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}

	// empty role list denies everyone, including admins
	users.accounts[res.Account.ID].Role = authcore.RoleAdmin
	rec = doGet(t, protect(), res.AccessToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("empty role list: status %d, want 403", rec.Code)
	}
}

func TestAuthorizeRoleWithoutAuthenticate(t *testing.T) {
	h := AuthorizeRole(authcore.RoleUser)(okHandler())

	rec := doGet(t, h, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}
