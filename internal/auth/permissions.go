package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anditama/inventory-management/internal"
)

// Permission catalog. Grants are per-role through the role_permissions join;
// users never hold permissions directly.
const (
	PermAssetsRead    = "assets_read"
	PermAssetsWrite   = "assets_write"
	PermLicensesRead  = "licenses_read"
	PermLicensesWrite = "licenses_write"
	PermVendorsRead   = "vendors_read"
	PermVendorsWrite  = "vendors_write"
	PermAuditsRead    = "audits_read"
	PermAuditsWrite   = "audits_write"
	PermUsersRead     = "users_read"
	PermUsersWrite    = "users_write"
)

// PermissionCatalog lists every known permission, used by the seeder and by
// input validation on role grants.
func PermissionCatalog() []string {
	return []string{
		PermAssetsRead, PermAssetsWrite,
		PermLicensesRead, PermLicensesWrite,
		PermVendorsRead, PermVendorsWrite,
		PermAuditsRead, PermAuditsWrite,
		PermUsersRead, PermUsersWrite,
	}
}

func isKnownPermission(name string) bool {
	for _, p := range PermissionCatalog() {
		if p == name {
			return true
		}
	}
	return false
}

// Aggregator resolves effective permissions through role membership and owns
// the replace-style mutations on the role/permission join tables. It has no
// cache of its own; the session rows carry the cached blob and the repository
// clears it inside the same transaction as a role change.
type Aggregator struct {
	directory DirectoryRepository
	logger    *slog.Logger
}

func NewAggregator(directory DirectoryRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{directory: directory, logger: logger}
}

// GetUserPermissions returns the union of permissions across every role the
// user currently holds, duplicates removed.
func (a *Aggregator) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	perms, err := a.directory.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate permissions for user %s: %w", userID, err)
	}
	return dedupe(perms), nil
}

// SetRolePermissions replaces the full grant set for a role. Calling with an
// empty list revokes everything the role grants.
func (a *Aggregator) SetRolePermissions(ctx context.Context, role string, permissions []string) error {
	if !IsKnownRole(role) {
		return internal.NewValidationError(fmt.Sprintf("unknown role %q", role), internal.ErrCodeInvalidRole)
	}
	for _, p := range permissions {
		if !isKnownPermission(p) {
			return internal.NewValidationError(fmt.Sprintf("unknown permission %q", p), internal.ErrCodeValidationFailed)
		}
	}

	if err := a.directory.SetRolePermissions(ctx, role, dedupe(permissions)); err != nil {
		return fmt.Errorf("set permissions for role %s: %w", role, err)
	}

	a.logger.Info("role permissions replaced", "role", role, "count", len(permissions))
	return nil
}

// SetUserRoles replaces the user's role memberships. The repository performs
// the delete-then-insert and the session cache invalidation in a single
// transaction so a concurrent permission check never observes a stale cache
// or a user with zero roles.
func (a *Aggregator) SetUserRoles(ctx context.Context, userID string, roles []string) error {
	for _, r := range roles {
		if !IsKnownRole(r) {
			return internal.NewValidationError(fmt.Sprintf("unknown role %q", r), internal.ErrCodeInvalidRole)
		}
	}

	if err := a.directory.SetUserRoles(ctx, userID, dedupe(roles)); err != nil {
		return fmt.Errorf("set roles for user %s: %w", userID, err)
	}

	a.logger.Info("user roles replaced", "user_id", userID, "roles", roles)
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
