package authcore

import (
	"context"
	"errors"

	"github.com/ciphemic/authcore/session"
)

// ListSessions returns the account's active sessions, newest first, with the
// one matching currentSessionID flagged.
func (e *Engine) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	active, err := e.sessions.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, len(active))
	for i, sess := range active {
		infos[i] = SessionInfo{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			IsCurrent: sess.ID == currentSessionID,
		}
	}

	return infos, nil
}

// DeleteSession revokes one of the account's own sessions. A session that
// does not exist and one that belongs to someone else both come back as
// ErrSessionNotFound.
func (e *Engine) DeleteSession(ctx context.Context, userID, sessionID string) error {
	err := e.sessions.DeleteOwned(ctx, userID, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
