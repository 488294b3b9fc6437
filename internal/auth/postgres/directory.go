package postgres

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/auth"
)

// DirectoryRepository implements auth.DirectoryRepository over the
// users/roles/permissions tables and their two join tables.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	return r.getUser(ctx, "u.id = ?", userID)
}

func (r *DirectoryRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getUser(ctx, "u.email = ?", email)
}

func (r *DirectoryRepository) getUser(ctx context.Context, where string, arg interface{}) (*auth.User, error) {
	var user auth.User
	query := `SELECT u.id, u.email, u.name, u.password_hash, u.is_active, u.created_at, u.updated_at
	          FROM users u WHERE ` + where

	row := r.db.WithContext(ctx).Raw(query, arg).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	roles, err := r.rolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *DirectoryRepository) rolesForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT r.name
	          FROM roles r
	          JOIN user_roles ur ON r.id = ur.role_id
	          WHERE ur.user_id = ?
	          ORDER BY r.name`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
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

// GetUserPermissions resolves the union across the user's roles through the
// two join tables in one query; DISTINCT removes grants shared by roles.
func (r *DirectoryRepository) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT DISTINCT p.name
	          FROM permissions p
	          JOIN role_permissions rp ON p.id = rp.permission_id
	          JOIN user_roles ur ON ur.role_id = rp.role_id
	          WHERE ur.user_id = ?
	          ORDER BY p.name`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		permissions = append(permissions, name)
	}
	return permissions, rows.Err()
}

func (r *DirectoryRepository) GetRolePermissions(ctx context.Context, role string) ([]string, error) {
	query := `SELECT p.name
	          FROM permissions p
	          JOIN role_permissions rp ON p.id = rp.permission_id
	          JOIN roles r ON r.id = rp.role_id
	          WHERE r.name = ?
	          ORDER BY p.name`

	rows, err := r.db.WithContext(ctx).Raw(query, role).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		permissions = append(permissions, name)
	}
	return permissions, rows.Err()
}

// SetUserRoles replaces the user's role memberships and clears the session
// permission caches for that user, all inside one transaction. A concurrent
// permission check either sees the old roles with the old cache or the new
// roles with the cache gone, never a half-applied state.
func (r *DirectoryRepository) SetUserRoles(ctx context.Context, userID string, roles []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, userID).Error; err != nil {
			return err
		}

		for _, role := range roles {
			if err := tx.Exec(`INSERT INTO user_roles (user_id, role_id)
			                   SELECT ?, r.id FROM roles r WHERE r.name = ?`, userID, role).Error; err != nil {
				return err
			}
		}

		return tx.Exec(`UPDATE sessions SET permissions = NULL WHERE user_id = ?`, userID).Error
	})
}

// SetRolePermissions is delete-then-insert in one transaction; an empty
// permission list revokes everything the role grants.
func (r *DirectoryRepository) SetRolePermissions(ctx context.Context, role string, permissions []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM role_permissions
		                   WHERE role_id = (SELECT id FROM roles WHERE name = ?)`, role).Error; err != nil {
			return err
		}

		for _, perm := range permissions {
			if err := tx.Exec(`INSERT INTO role_permissions (role_id, permission_id)
			                   SELECT r.id, p.id FROM roles r, permissions p
			                   WHERE r.name = ? AND p.name = ?`, role, perm).Error; err != nil {
				return err
			}
		}

		// Cached blobs of every user holding the role are now stale.
		return tx.Exec(`UPDATE sessions SET permissions = NULL
		                WHERE user_id IN (
		                    SELECT ur.user_id FROM user_roles ur
		                    JOIN roles r ON r.id = ur.role_id
		                    WHERE r.name = ?
		                )`, role).Error
	})
}

func (r *DirectoryRepository) CountActiveAdmins(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(DISTINCT u.id)
	          FROM users u
	          JOIN user_roles ur ON ur.user_id = u.id
	          JOIN roles r ON r.id = ur.role_id
	          WHERE u.is_active = true AND r.name = ?`

	row := r.db.WithContext(ctx).Raw(query, auth.RoleAdmin).Row()
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
