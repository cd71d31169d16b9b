package authcore

import (
	"errors"
	"strings"
	"time"

	"github.com/ciphemic/authcore/jwt"
	"github.com/ciphemic/authcore/password"
)

const (
	defaultAccessTTL      = 20 * time.Minute
	defaultSessionLife    = 30 * 24 * time.Hour
	defaultRotationWindow = 24 * time.Hour
	defaultResetTTL       = 5 * time.Minute
	defaultVerifyTTL      = 30 * 24 * time.Hour
)

// SessionConfig controls session storage and the sliding-window rotation.
type SessionConfig struct {
	// RedisPrefix namespaces session keys.
	RedisPrefix string
	// Lifetime is how long a session stays valid after creation or rotation.
	Lifetime time.Duration
	// RotationWindow is the remaining-lifetime threshold at or below which a
	// refresh extends the session and mints a new refresh token.
	RotationWindow time.Duration
}

// PasswordConfig wraps the hasher parameters and the rehash-on-login switch.
type PasswordConfig struct {
	Argon2 password.Config
	// UpgradeOnLogin rehashes credentials at login when the stored hash was
	// produced with weaker parameters than currently configured.
	UpgradeOnLogin bool
}

// VerificationConfig controls single-use email verification codes.
type VerificationConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// ThrottleConfig caps outbound auth emails per address inside a fixed
// window. Disabled means unlimited.
type ThrottleConfig struct {
	Enabled     bool
	RedisPrefix string
	Window      time.Duration
	MaxSends    int
}

// Config is the engine's full configuration tree.
type Config struct {
	JWT          jwt.Config
	Session      SessionConfig
	Password     PasswordConfig
	Verification VerificationConfig
	Throttle     ThrottleConfig

	// AppOrigin is the public base URL used in emailed links.
	AppOrigin string
}

// DefaultConfig returns a Config with production lifetimes filled in.
// Secrets are left empty and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: jwt.Config{
			AccessTTL:  defaultAccessTTL,
			RefreshTTL: defaultSessionLife,
			ResetTTL:   defaultResetTTL,
			Issuer:     "authcore",
		},
		Session: SessionConfig{
			RedisPrefix:    "authcore:sess",
			Lifetime:       defaultSessionLife,
			RotationWindow: defaultRotationWindow,
		},
		Password: PasswordConfig{
			Argon2: password.Config{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
			UpgradeOnLogin: true,
		},
		Verification: VerificationConfig{
			RedisPrefix: "authcore:verify",
			TTL:         defaultVerifyTTL,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			RedisPrefix: "authcore:mail",
			Window:      time.Hour,
			MaxSends:    5,
		},
		AppOrigin: "http://localhost:3000",
	}
}

// Validate checks the parts of the tree the engine itself depends on. The
// jwt and password packages validate their own sections on construction.
func (c *Config) Validate() error {
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix is required")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if c.Session.RotationWindow <= 0 {
		return errors.New("rotation window must be positive")
	}
	if c.Session.RotationWindow > c.Session.Lifetime {
		return errors.New("rotation window cannot exceed session lifetime")
	}
	if c.Verification.RedisPrefix == "" {
		return errors.New("verification redis prefix is required")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("verification ttl must be positive")
	}
	if c.Throttle.Enabled {
		if c.Throttle.RedisPrefix == "" {
			return errors.New("throttle redis prefix is required")
		}
		if c.Throttle.Window <= 0 || c.Throttle.MaxSends <= 0 {
			return errors.New("throttle window and max sends must be positive")
		}
	}
	if c.AppOrigin == "" || !strings.Contains(c.AppOrigin, "://") {
		return errors.New("app origin must be an absolute URL")
	}
	return nil
}
