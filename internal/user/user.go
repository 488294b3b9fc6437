package user

import (
	"context"

	"github.com/anditama/inventory-management/internal/auth"
)

// Repository owns user row mutations. Reads of users with their roles go
// through auth.DirectoryRepository; this interface covers the write side.
type Repository interface {
	Create(ctx context.Context, u *auth.User, passwordHash string, roles []string) error
	List(ctx context.Context, limit, offset int) ([]*auth.User, error)
	UpdateProfile(ctx context.Context, userID, name, email string) error
	Activate(ctx context.Context, userID string) error

	// Deactivate re-checks the active-admin count and flips is_active in a
	// single transaction, returning internal.ErrLastActiveAdmin when the
	// target is the only active admin. The transactional re-check closes the
	// window between the policy's count and the write.
	Deactivate(ctx context.Context, userID string) error

	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Delete(ctx context.Context, userID string) error
}

// PasswordHasher abstracts the bcrypt hashing the auth service provides.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, viewerID string, dto CreateUserDTO) (*auth.User, error)
	List(ctx context.Context, limit, offset int) ([]*auth.User, error)
	Get(ctx context.Context, userID string) (*auth.User, error)
	UpdateProfile(ctx context.Context, viewerID, targetID string, dto UpdateProfileDTO) error
	SetRoles(ctx context.Context, viewerID, targetID string, roles []string, confirmed bool) error
	Activate(ctx context.Context, viewerID, targetID string) error
	Deactivate(ctx context.Context, viewerID, targetID string) error
	ResetPassword(ctx context.Context, viewerID, targetID string, newPassword string) error
	Remove(ctx context.Context, viewerID, targetID string) error
}
