package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/obs"
)

// Decision is the outcome of an authorization check. Status carries the
// HTTP-equivalent classification: 401 for anything unauthenticated (missing,
// malformed, expired or revoked token), 403 for an authenticated caller
// lacking the permission.
type Decision struct {
	OK     bool
	Status int
	Reason internal.ErrorCode
	Me     *internal.Caller
}

func denied(status int, reason internal.ErrorCode) Decision {
	return Decision{Status: status, Reason: reason}
}

// Guard is the single authorization entry point for every protected
// operation. It is read-only and safe to call any number of times per
// request.
type Guard struct {
	codec      *Codec
	sessions   SessionRepository
	directory  DirectoryRepository
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewGuard(codec *Codec, sessions SessionRepository, directory DirectoryRepository, aggregator *Aggregator, logger *slog.Logger) *Guard {
	return &Guard{
		codec:      codec,
		sessions:   sessions,
		directory:  directory,
		aggregator: aggregator,
		logger:     logger,
	}
}

// RequirePermission resolves the caller from the raw token and decides
// whether they may perform the operation guarded by permission.
//
// Order matters: signature and expiry first, then session revocation, then
// user status, then the admin shortcut, then the aggregated permission set.
// Role and permission state is read fresh (or from the session cache that
// role changes invalidate), so a demoted admin loses elevated capability on
// their next request even though the token still names the old role.
func (g *Guard) RequirePermission(ctx context.Context, rawToken, permission string) Decision {
	if rawToken == "" {
		obs.AuthzDecision("denied_unauthenticated")
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}

	claims := g.codec.Verify(rawToken)
	if claims == nil {
		obs.AuthzDecision("denied_unauthenticated")
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}

	tokenHash := HashToken(rawToken)
	active, err := g.sessions.IsActive(ctx, tokenHash)
	if err != nil {
		g.logger.Error("session lookup failed", "error", err, "user_id", claims.UserID)
		return denied(http.StatusUnauthorized, internal.ErrCodeSessionRevoked)
	}
	if !active {
		obs.AuthzDecision("denied_revoked")
		return denied(http.StatusUnauthorized, internal.ErrCodeSessionRevoked)
	}

	user, err := g.directory.GetUserByID(ctx, claims.UserID)
	if err != nil {
		g.logger.Error("caller lookup failed", "error", err, "user_id", claims.UserID)
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}
	if !user.IsActive {
		obs.AuthzDecision("denied_inactive")
		return denied(http.StatusUnauthorized, internal.ErrCodeUserInactive)
	}

	me := &internal.Caller{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      primaryRole(user.Roles),
		Roles:     user.Roles,
		TokenHash: tokenHash,
	}

	// Admins hold every permission implicitly.
	if user.IsAdmin() {
		obs.AuthzDecision("granted_admin")
		return Decision{OK: true, Status: http.StatusOK, Me: me}
	}

	permissions, err := g.resolvePermissions(ctx, tokenHash, user.ID)
	if err != nil {
		g.logger.Error("permission resolution failed", "error", err, "user_id", user.ID)
		return denied(http.StatusForbidden, internal.ErrCodeInsufficientPermissions)
	}
	me.Permissions = permissions

	for _, p := range permissions {
		if p == permission {
			obs.AuthzDecision("granted")
			return Decision{OK: true, Status: http.StatusOK, Me: me}
		}
	}

	g.logger.Warn("access denied: insufficient permissions",
		"user_id", user.ID,
		"required_permission", permission,
		"user_permissions", permissions)
	obs.AuthzDecision("denied_forbidden")
	return denied(http.StatusForbidden, internal.ErrCodeInsufficientPermissions)
}

// Authenticate runs the unauthenticated-vs-authenticated half of the check
// only: token signature and expiry, session revocation, user status. It is
// used by routes that need a caller but no specific permission.
func (g *Guard) Authenticate(ctx context.Context, rawToken string) Decision {
	if rawToken == "" {
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}
	claims := g.codec.Verify(rawToken)
	if claims == nil {
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}

	tokenHash := HashToken(rawToken)
	active, err := g.sessions.IsActive(ctx, tokenHash)
	if err != nil || !active {
		return denied(http.StatusUnauthorized, internal.ErrCodeSessionRevoked)
	}

	user, err := g.directory.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return denied(http.StatusUnauthorized, internal.ErrCodeInvalidToken)
	}
	if !user.IsActive {
		return denied(http.StatusUnauthorized, internal.ErrCodeUserInactive)
	}

	return Decision{
		OK:     true,
		Status: http.StatusOK,
		Me: &internal.Caller{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      primaryRole(user.Roles),
			Roles:     user.Roles,
			TokenHash: tokenHash,
		},
	}
}

// resolvePermissions prefers the blob cached on the session row and falls
// back to aggregating through the join tables, repopulating the cache. The
// cache is cleared transactionally on role change, so a hit is never stale.
func (g *Guard) resolvePermissions(ctx context.Context, tokenHash, userID string) ([]string, error) {
	cached, ok, err := g.sessions.CachedPermissions(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if ok {
		return cached, nil
	}

	permissions, err := g.aggregator.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := g.sessions.StorePermissions(ctx, tokenHash, permissions); err != nil {
		// A failed cache write only costs the next request a re-aggregation.
		g.logger.Warn("failed to cache session permissions", "error", err, "user_id", userID)
	}
	return permissions, nil
}

func primaryRole(roles []string) string {
	for _, candidate := range []string{RoleSuperadmin, RoleAdmin, RoleUser} {
		for _, r := range roles {
			if r == candidate {
				return candidate
			}
		}
	}
	return ""
}
