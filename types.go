package authcore

import "context"

// Role is an account's authorization level.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Account is the engine's view of a registered user. PasswordHash never
// leaves the server, hence the json tag.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Verified     bool   `json:"verified"`
	CreatedAt    int64  `json:"createdAt"`
}

// CreateAccountInput carries the fields needed to persist a new account.
// The hash is already computed; providers never see plaintext passwords.
type CreateAccountInput struct {
	Email        string
	PasswordHash string
	Role         Role
}

// UserProvider is the persistence boundary for accounts. Implementations
// must return ErrEmailExists from Create on a duplicate email and
// ErrUserNotFound from the lookups when no account matches.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account      *Account
	AccessToken  string
	RefreshToken string
}

// RefreshResult is returned by Refresh. NewRefreshToken is empty unless the
// session was rotated into a new validity window.
type RefreshResult struct {
	AccessToken     string
	NewRefreshToken string
}

// SessionInfo is the caller-facing projection of a stored session.
type SessionInfo struct {
	ID        string `json:"id"`
	UserAgent string `json:"userAgent"`
	CreatedAt int64  `json:"createdAt"`
	IsCurrent bool   `json:"isCurrent"`
}
