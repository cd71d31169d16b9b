package jwt

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     20 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		ResetSecret:   []byte("reset-secret-for-tests"),
		ResetTTL:      5 * time.Minute,
		Issuer:        "authcore-test",
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(t, testConfig())

	token, err := m.SignAccess("u1", "s1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshTokenCarriesSessionOnly(t *testing.T) {
	m := newTestManager(t, testConfig())

	token, err := m.SignRefresh("s1")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.SessionID != "s1" {
		t.Fatalf("expected session s1, got %q", claims.SessionID)
	}
}

func TestTokenKindsUseDistinctSecrets(t *testing.T) {
	m := newTestManager(t, testConfig())

	refresh, err := m.SignRefresh("s1")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for cross-kind parse, got %v", err)
	}
}

func TestExpiredDistinguishedFromInvalid(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Millisecond
	m := newTestManager(t, cfg)

	token, err := m.SignAccess("u1", "s1")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.ParseAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := m.ParseAccess("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestResetTokenInvalidatedByHashChange(t *testing.T) {
	m := newTestManager(t, testConfig())

	token, err := m.SignReset("u1", "a@x.com", "hash-before")
	if err != nil {
		t.Fatalf("SignReset failed: %v", err)
	}

	claims, err := m.ParseReset(token, "hash-before")
	if err != nil {
		t.Fatalf("ParseReset with original hash failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@x.com" {
		t.Fatalf("unexpected reset claims: %+v", claims)
	}

	// Token is unexpired by the clock but the derivation input changed.
	if _, err := m.ParseReset(token, "hash-after"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after hash change, got %v", err)
	}
}

func TestNewManagerRejectsMissingSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = nil
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}

	cfg = testConfig()
	cfg.AccessTTL = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for zero access TTL")
	}
}
