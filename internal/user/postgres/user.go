package postgres

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/auth"
	"github.com/anditama/inventory-management/internal/user"
)

// UserRepository implements user.Repository with raw SQL through GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *auth.User, passwordHash string, roles []string) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO users (id, email, name, password_hash, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, u.Name, passwordHash, u.IsActive, now, now,
		).Error; err != nil {
			return err
		}

		for _, role := range roles {
			if err := tx.Exec(
				`INSERT INTO user_roles (user_id, role_id)
				 SELECT ?, r.id FROM roles r WHERE r.name = ?`,
				u.ID, role,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return internal.ErrDuplicateEmail
		}
		return internal.NewStorageError("failed to create user", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	query := `SELECT u.id, u.email, u.name, u.is_active, u.created_at, u.updated_at
	          FROM users u
	          ORDER BY u.created_at
	          LIMIT ? OFFSET ?`

	rows, err := r.db.WithContext(ctx).Raw(query, limit, offset).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, u := range users {
		roles, err := r.rolesForUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Roles = roles
	}
	return users, nil
}

func (r *UserRepository) rolesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.WithContext(ctx).Raw(
		`SELECT r.name FROM roles r
		 JOIN user_roles ur ON r.id = ur.role_id
		 WHERE ur.user_id = ? ORDER BY r.name`, userID,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, email string) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, email, time.Now(), userID,
	)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return internal.ErrDuplicateEmail
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Activate(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET is_active = true, updated_at = ? WHERE id = ?`,
		time.Now(), userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// Deactivate flips is_active inside one transaction that re-counts the
// active admins. Two racing deactivations of the last two admins serialize
// here, so one of them observes a count of one and is rejected.
func (r *UserRepository) Deactivate(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var isAdmin int
		row := tx.Raw(
			`SELECT COUNT(1) FROM user_roles ur
			 JOIN roles r ON r.id = ur.role_id
			 WHERE ur.user_id = ? AND r.name = ?`,
			userID, auth.RoleAdmin,
		).Row()
		if err := row.Scan(&isAdmin); err != nil {
			return err
		}

		if isAdmin > 0 {
			var activeAdmins int64
			// Row locks on the active admins serialize racing deactivations.
			row := tx.Raw(
				`SELECT COUNT(*) FROM (
				     SELECT u.id FROM users u
				     JOIN user_roles ur ON ur.user_id = u.id
				     JOIN roles r ON r.id = ur.role_id
				     WHERE u.is_active = true AND r.name = ?
				     FOR UPDATE OF u
				 ) active_admins`,
				auth.RoleAdmin,
			).Row()
			if err := row.Scan(&activeAdmins); err != nil {
				return err
			}
			if activeAdmins <= 1 {
				return internal.ErrLastActiveAdmin
			}
		}

		result := tx.Exec(
			`UPDATE users SET is_active = false, updated_at = ? WHERE id = ?`,
			time.Now(), userID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

// Delete removes the user and cascades role memberships and sessions.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, userID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID).Error; err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM users WHERE id = ?`, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
