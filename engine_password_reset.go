package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ciphemic/authcore/mailer"
	"github.com/ciphemic/authcore/password"
)

// RequestPasswordReset emails a reset link when the address belongs to an
// account and silently does nothing otherwise. The caller reports success
// either way so the endpoint cannot be used to probe for registered emails.
//
// The token is signed with a key derived from the account's current password
// hash: changing the password invalidates every outstanding reset token
// without any revocation bookkeeping.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	// counted before the lookup so throttling behaves the same for unknown
	// addresses
	if err := e.throttleMail(ctx, "reset", email); err != nil {
		return err
	}

	account, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := e.tokens.SignReset(account.ID, account.Email, account.PasswordHash)
	if err != nil {
		return err
	}

	link := e.config.AppOrigin + "/reset-password/" + account.ID + "/" + token
	if err := e.mail.Send(ctx, account.Email, mailer.ResetPassword(link)); err != nil {
		return fmt.Errorf("%w: %v", ErrMailSendFailed, err)
	}

	return nil
}

// VerifyPasswordReset checks a reset token against the account's current
// password hash. Every failure mode, expiry, bad signature, a token minted
// before the last password change, or a mismatched account, collapses into
// ErrResetInvalid.
func (e *Engine) VerifyPasswordReset(ctx context.Context, accountID, token string) error {
	_, err := e.checkResetToken(ctx, accountID, token)
	return err
}

// CompletePasswordReset re-verifies the token and installs the new password.
// The hash update invalidates all outstanding reset tokens; afterwards every
// session of the account is revoked. If revocation fails the new password is
// already in effect, and the returned error says so via
// ErrSessionInvalidationFailed.
func (e *Engine) CompletePasswordReset(ctx context.Context, accountID, token, newPassword string) error {
	account, err := e.checkResetToken(ctx, accountID, token)
	if err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
		}
		return err
	}

	if err := e.users.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return err
	}

	if err := e.sessions.DeleteAllForUser(ctx, account.ID); err != nil {
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	return nil
}

func (e *Engine) checkResetToken(ctx context.Context, accountID, token string) (*Account, error) {
	account, err := e.users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrResetInvalid
		}
		return nil, err
	}

	claims, err := e.tokens.ParseReset(token, account.PasswordHash)
	if err != nil {
		return nil, ErrResetInvalid
	}
	if claims.UserID != account.ID {
		return nil, ErrResetInvalid
	}

	return account, nil
}
