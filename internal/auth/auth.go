package auth

import (
	"context"
	"time"
)

// Role names form a closed set ordered by privilege. Superadmin is assigned
// once at bootstrap and has no mutation path through the API.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

func IsKnownRole(name string) bool {
	switch name {
	case RoleSuperadmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User is the directory view of an account as the auth subsystem needs it.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleSuperadmin)
}

func (u *User) IsSuperadmin() bool {
	return u.HasRole(RoleSuperadmin)
}

// Session is one authenticated browser session. The raw token is never
// stored; only its SHA-256 hash. Permissions is a cache riding on the row
// and is cleared whenever the owning user's role set changes.
type Session struct {
	TokenHash   string     `json:"-"`
	UserID      string     `json:"user_id"`
	ExpiresAt   *time.Time `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
	Permissions []string   `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SessionRepository is the single source of truth for "is this token still
// honored". A structurally valid token whose session row is revoked or
// expired must be treated as unauthenticated.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	IsActive(ctx context.Context, tokenHash string) (bool, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	CachedPermissions(ctx context.Context, tokenHash string) ([]string, bool, error)
	StorePermissions(ctx context.Context, tokenHash string, permissions []string) error
	InvalidatePermissionCache(ctx context.Context, userID string) error
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// DirectoryRepository resolves users, their role memberships and the
// role/permission join tables.
type DirectoryRepository interface {
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
	GetRolePermissions(ctx context.Context, role string) ([]string, error)

	// SetUserRoles replaces the user's role memberships and clears the
	// session permission caches for that user inside one transaction.
	SetUserRoles(ctx context.Context, userID string, roles []string) error
	SetRolePermissions(ctx context.Context, role string, permissions []string) error
	CountActiveAdmins(ctx context.Context) (int64, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	CurrentUser(ctx context.Context, rawToken string) (*User, error)
}
