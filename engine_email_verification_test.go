package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// pull the verification code out of the last sent mail
func lastCode(t *testing.T, env *testEnv) string {
	t.Helper()

	text := env.mail.last(t).Text
	idx := strings.Index(text, "/email/verify/")
	if idx < 0 {
		t.Fatalf("no verification link in mail: %q", text)
	}
	code := text[idx+len("/email/verify/"):]
	if end := strings.IndexAny(code, "\n \t"); end >= 0 {
		code = code[:end]
	}
	return code
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEngine(t)
	res := env.register(t, "alice@example.com", "correct horse")
	code := lastCode(t, env)

	account, err := env.engine.VerifyEmail(context.Background(), code)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !account.Verified {
		t.Error("account should be verified")
	}

	stored, _ := env.users.GetByID(context.Background(), res.Account.ID)
	if !stored.Verified {
		t.Error("verification not persisted")
	}

	welcome := env.mail.last(t)
	if !strings.Contains(welcome.Subject, "Welcome") {
		t.Errorf("expected welcome mail, got subject %q", welcome.Subject)
	}
}

func TestVerifyEmailSecondUseFailsIdentically(t *testing.T) {
	env := newTestEngine(t)
	env.register(t, "alice@example.com", "correct horse")
	code := lastCode(t, env)

	if _, err := env.engine.VerifyEmail(context.Background(), code); err != nil {
		t.Fatalf("first use: %v", err)
	}

	_, errReuse := env.engine.VerifyEmail(context.Background(), code)
	_, errNever := env.engine.VerifyEmail(context.Background(), "never-issued-code")

	if !errors.Is(errReuse, ErrCodeNotFound) {
		t.Errorf("reuse: expected ErrCodeNotFound, got %v", errReuse)
	}
	if !errors.Is(errNever, ErrCodeNotFound) {
		t.Errorf("unknown: expected ErrCodeNotFound, got %v", errNever)
	}
	if errReuse.Error() != errNever.Error() {
		t.Error("reused and unknown codes must fail identically")
	}
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Verification.TTL = time.Second
	})
	env.register(t, "alice@example.com", "correct horse")
	code := lastCode(t, env)

	time.Sleep(1100 * time.Millisecond)

	if _, err := env.engine.VerifyEmail(context.Background(), code); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("expected ErrCodeNotFound for expired code, got %v", err)
	}
}

func TestVerifyEmailWelcomeFailureIsSwallowed(t *testing.T) {
	env := newTestEngine(t)
	env.register(t, "alice@example.com", "correct horse")
	code := lastCode(t, env)

	env.mail.fail = errBoom

	account, err := env.engine.VerifyEmail(context.Background(), code)
	if err != nil {
		t.Fatalf("VerifyEmail should tolerate welcome mail failure: %v", err)
	}
	if !account.Verified {
		t.Error("account should still be verified")
	}
}

func TestResendVerificationEmail(t *testing.T) {
	env := newTestEngine(t)
	res := env.register(t, "alice@example.com", "correct horse")
	firstCode := lastCode(t, env)

	if err := env.engine.ResendVerificationEmail(context.Background(), res.Account.ID); err != nil {
		t.Fatalf("ResendVerificationEmail: %v", err)
	}

	secondCode := lastCode(t, env)
	if secondCode == firstCode {
		t.Error("resend should mint a fresh code")
	}

	// both codes redeem; each exactly once
	if _, err := env.engine.VerifyEmail(context.Background(), firstCode); err != nil {
		t.Errorf("first code: %v", err)
	}
	if _, err := env.engine.VerifyEmail(context.Background(), secondCode); err != nil {
		t.Errorf("second code: %v", err)
	}
}

func TestResendVerificationEmailAlreadyVerified(t *testing.T) {
	env := newTestEngine(t)
	res := env.register(t, "alice@example.com", "correct horse")

	if _, err := env.engine.VerifyEmail(context.Background(), lastCode(t, env)); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	err := env.engine.ResendVerificationEmail(context.Background(), res.Account.ID)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestResendVerificationEmailUnknownAccount(t *testing.T) {
	env := newTestEngine(t)

	err := env.engine.ResendVerificationEmail(context.Background(), "no-such-id")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
