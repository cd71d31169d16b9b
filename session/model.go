package session

import "time"

// Session is one authenticated device or browser. It is the sole source of
// truth for refresh-token validity: a syntactically valid refresh token whose
// session is gone is inert.
type Session struct {
	ID        string
	UserID    string
	UserAgent string

	CreatedAt int64
	ExpiresAt int64
}

// Remaining returns the time left until the session expires, relative to now.
func (s *Session) Remaining(now time.Time) time.Duration {
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
