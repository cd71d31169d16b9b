package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures are collapsed into exactly two reasons so callers can
// present distinct user-facing messages for each.
var (
	// ErrTokenExpired is returned when a token's signature is valid but its
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens, bad signatures, and
	// every other verification failure that is not a plain expiry.
	ErrTokenInvalid = errors.New("invalid token")
)

// Config carries the per-kind signing secrets and lifetimes. It is set once
// at startup and treated as immutable afterwards.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// ResetSecret is the fixed server half of the derived password-reset
	// signing key. The other half is the account's current password hash.
	ResetSecret []byte
	ResetTTL    time.Duration

	Issuer string
}

// Manager signs and verifies the three token kinds: access, refresh, and
// password reset. Signing is pure; verification does no I/O.
type Manager struct {
	config Config
}

// AccessClaims is the payload of a short-lived access token. It carries both
// the account and the session so the request gate can attach them to the
// request context.
type AccessClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. It carries the
// session id only; a refresh token alone can never authorize resource access.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a self-invalidating password-reset token.
type ResetClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if len(cfg.ResetSecret) == 0 {
		return nil, errors.New("reset secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}

	return &Manager{config: cfg}, nil
}

// SignAccess mints an access token bound to an account and a session.
func (m *Manager) SignAccess(userID, sessionID string) (string, error) {
	claims := AccessClaims{
		UserID:           userID,
		SessionID:        sessionID,
		RegisteredClaims: m.registered(m.config.AccessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.AccessSecret)
}

// SignRefresh mints a refresh token bound to a session. The account id is
// deliberately absent from the payload.
func (m *Manager) SignRefresh(sessionID string) (string, error) {
	claims := RefreshClaims{
		SessionID:        sessionID,
		RegisteredClaims: m.registered(m.config.RefreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
}

// ParseAccess verifies an access token. It returns ErrTokenExpired for a
// well-signed but stale token and ErrTokenInvalid for everything else.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token against the refresh secret.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignReset mints a password-reset token whose signing key is derived from
// the fixed server secret plus the account's current password hash. Changing
// the password changes the derivation, which retroactively invalidates every
// outstanding reset token for the account.
func (m *Manager) SignReset(userID, email, passwordHash string) (string, error) {
	claims := ResetClaims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: m.registered(m.config.ResetTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.resetKey(passwordHash))
}

// ParseReset verifies a reset token against the key derived from the
// account's current password hash. A token issued before a password change
// fails verification here even if its stated expiry has not passed.
func (m *Manager) ParseReset(tokenStr, passwordHash string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := m.parse(tokenStr, claims, m.resetKey(passwordHash)); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}
	return claims
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}

func (m *Manager) resetKey(passwordHash string) []byte {
	key := make([]byte, 0, len(m.config.ResetSecret)+len(passwordHash))
	key = append(key, m.config.ResetSecret...)
	key = append(key, passwordHash...)
	return key
}
