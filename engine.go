package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ciphemic/authcore/jwt"
	"github.com/ciphemic/authcore/mailer"
	"github.com/ciphemic/authcore/password"
	"github.com/ciphemic/authcore/session"
)

// Engine orchestrates the authentication flows. It holds no per-request
// state; Redis is the only shared mutable store, so a single Engine is safe
// for concurrent use.
type Engine struct {
	config   Config
	users    UserProvider
	tokens   *jwt.Manager
	sessions *session.Store
	hasher   *password.Argon2
	codes    *verificationStore
	mail     mailer.Sender
	throttle *mailLimiter
}

// New wires an Engine from its configuration and dependencies.
func New(cfg Config, redisClient redis.UniversalClient, users UserProvider, mail mailer.Sender) (*Engine, error) {
	if redisClient == nil || users == nil || mail == nil {
		return nil, ErrEngineNotReady
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(cfg.Password.Argon2)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(redisClient, cfg.Session.RedisPrefix, cfg.Session.Lifetime)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		hasher:   hasher,
		codes:    newVerificationStore(redisClient, cfg.Verification.RedisPrefix, cfg.Verification.TTL),
		mail:     mail,
	}
	if cfg.Throttle.Enabled {
		e.throttle = newMailLimiter(redisClient, cfg.Throttle)
	}
	return e, nil
}

// throttleMail counts a send attempt when throttling is on.
func (e *Engine) throttleMail(ctx context.Context, kind, email string) error {
	if e.throttle == nil {
		return nil
	}
	return e.throttle.allow(ctx, kind, email)
}

// Register creates an account, emails a verification link, and logs the new
// account in. The verification email is sent before the session is created;
// a delivery failure surfaces as ErrMailSendFailed with the account already
// committed.
func (e *Engine) Register(ctx context.Context, email, pass, userAgent string) (*AuthResult, error) {
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
		return nil, err
	}

	account, err := e.users.Create(ctx, CreateAccountInput{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, err
	}

	code, err := e.codes.Issue(ctx, account.ID, purposeEmailVerification)
	if err != nil {
		return nil, err
	}
	if err := e.mail.Send(ctx, account.Email, mailer.VerifyEmail(e.verifyLink(code))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMailSendFailed, err)
	}

	return e.startSession(ctx, account, userAgent)
}

// Login authenticates a credential pair and starts a new session. Unknown
// email and wrong password produce the same error.
func (e *Engine) Login(ctx context.Context, email, pass, userAgent string) (*AuthResult, error) {
	account, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(pass, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, account, pass)
	}

	return e.startSession(ctx, account, userAgent)
}

// Refresh exchanges a refresh token for a new access token. When the backing
// session is inside the rotation window its lifetime is extended and a new
// refresh token is minted alongside.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	sess, err := e.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	result := &RefreshResult{}

	if sess.Remaining(time.Now()) <= e.config.Session.RotationWindow {
		if _, err := e.sessions.Extend(ctx, sess.ID); err != nil {
			return nil, err
		}
		if result.NewRefreshToken, err = e.tokens.SignRefresh(sess.ID); err != nil {
			return nil, err
		}
	}

	if result.AccessToken, err = e.tokens.SignAccess(sess.UserID, sess.ID); err != nil {
		return nil, err
	}

	return result, nil
}

// Logout tears down the session named by an access token. It never fails:
// a missing, expired, or garbage token leaves nothing to tear down.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil
	}

	if err := e.sessions.Delete(ctx, claims.SessionID); err != nil {
		slog.Warn("logout: session delete failed", "sessionId", claims.SessionID, "error", err)
	}

	return nil
}

// ValidateAccess verifies an access token and resolves its account. Token
// failures pass through as jwt.ErrTokenExpired or jwt.ErrTokenInvalid so the
// request gate can answer with distinct messages; a token whose account no
// longer exists counts as invalid.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Account, string, error) {
	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, "", err
	}

	account, err := e.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", jwt.ErrTokenInvalid
		}
		return nil, "", err
	}

	return account, claims.SessionID, nil
}

func (e *Engine) startSession(ctx context.Context, account *Account, userAgent string) (*AuthResult, error) {
	sess, err := e.sessions.Create(ctx, account.ID, userAgent)
	if err != nil {
		return nil, err
	}

	access, err := e.tokens.SignAccess(account.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.SignRefresh(sess.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Account:      account,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// maybeUpgradeHash rehashes the credential under the current parameters.
// Failures are logged and swallowed: the login already succeeded.
func (e *Engine) maybeUpgradeHash(ctx context.Context, account *Account, pass string) {
	needs, err := e.hasher.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.hasher.Hash(pass)
	if err != nil {
		slog.Warn("hash upgrade failed", "userId", account.ID, "error", err)
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		slog.Warn("hash upgrade persist failed", "userId", account.ID, "error", err)
		return
	}

	account.PasswordHash = newHash
}

func (e *Engine) verifyLink(code string) string {
	return e.config.AppOrigin + "/email/verify/" + code
}
