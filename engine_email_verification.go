package authcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ciphemic/authcore/mailer"
)

// VerifyEmail redeems a verification code and marks its account verified.
// Unknown, expired, and already-consumed codes all fail with ErrCodeNotFound;
// a caller cannot tell which it was.
func (e *Engine) VerifyEmail(ctx context.Context, code string) (*Account, error) {
	rec, err := e.codes.Consume(ctx, code, purposeEmailVerification)
	if err != nil {
		return nil, err
	}

	account, err := e.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}

	if !account.Verified {
		if err := e.users.MarkVerified(ctx, account.ID); err != nil {
			return nil, err
		}
		account.Verified = true

		if err := e.mail.Send(ctx, account.Email, mailer.Welcome(account.Email)); err != nil {
			slog.Warn("welcome email failed", "userId", account.ID, "error", err)
		}
	}

	return account, nil
}

// ResendVerificationEmail issues a fresh code for an unverified account and
// emails it. Earlier codes stay valid until they expire or are consumed.
func (e *Engine) ResendVerificationEmail(ctx context.Context, accountID string) error {
	account, err := e.users.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Verified {
		return ErrAlreadyVerified
	}

	if err := e.throttleMail(ctx, "verify", account.Email); err != nil {
		return err
	}

	code, err := e.codes.Issue(ctx, account.ID, purposeEmailVerification)
	if err != nil {
		return err
	}

	if err := e.mail.Send(ctx, account.Email, mailer.VerifyEmail(e.verifyLink(code))); err != nil {
		return fmt.Errorf("%w: %v", ErrMailSendFailed, err)
	}

	return nil
}
