package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/auth"
)

// Service orchestrates user administration. Every mutation of another user's
// roles, status or credentials passes the mutation policy first, so the
// "admin protects admin" and "last active admin" rules live in one place.
type Service struct {
	repo       Repository
	directory  auth.DirectoryRepository
	sessions   auth.SessionRepository
	aggregator *auth.Aggregator
	policy     *auth.Policy
	hasher     PasswordHasher
	logger     *slog.Logger
}

func NewService(repo Repository, directory auth.DirectoryRepository, sessions auth.SessionRepository, aggregator *auth.Aggregator, policy *auth.Policy, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		directory:  directory,
		sessions:   sessions,
		aggregator: aggregator,
		policy:     policy,
		hasher:     hasher,
		logger:     logger,
	}
}

func (s *Service) actors(ctx context.Context, viewerID, targetID string) (auth.Actor, auth.Actor, error) {
	viewer, err := s.directory.GetUserByID(ctx, viewerID)
	if err != nil {
		return auth.Actor{}, auth.Actor{}, err
	}
	target, err := s.directory.GetUserByID(ctx, targetID)
	if err != nil {
		return auth.Actor{}, auth.Actor{}, err
	}
	return toActor(viewer), toActor(target), nil
}

func toActor(u *auth.User) auth.Actor {
	return auth.Actor{ID: u.ID, Roles: u.Roles, IsActive: u.IsActive}
}

func (s *Service) Create(ctx context.Context, viewerID string, dto CreateUserDTO) (*auth.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	roles := dto.Roles
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	for _, r := range roles {
		if r == auth.RoleSuperadmin {
			// Superadmin exists only through bootstrap seeding.
			return nil, internal.NewValidationError("superadmin cannot be assigned", internal.ErrCodeInvalidRole)
		}
		if !auth.IsKnownRole(r) {
			return nil, internal.NewValidationError("unknown role "+r, internal.ErrCodeInvalidRole)
		}
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &auth.User{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(strings.TrimSpace(dto.Email)),
		Name:     strings.TrimSpace(dto.Name),
		IsActive: true,
		Roles:    roles,
	}
	if err := s.repo.Create(ctx, u, hash, roles); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "email", u.Email, "roles", roles, "created_by", viewerID)
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, userID string) (*auth.User, error) {
	return s.directory.GetUserByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, viewerID, targetID string, dto UpdateProfileDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}
	if decision := s.policy.CanModify(viewer, target, auth.OpEditProfile, count); !decision.Allowed {
		return decision.Err
	}

	return s.repo.UpdateProfile(ctx, targetID, strings.TrimSpace(dto.Name), strings.ToLower(strings.TrimSpace(dto.Email)))
}

// SetRoles replaces the target's role memberships. Demoting an admin needs
// the caller's explicit confirmation; the policy reports when that applies.
func (s *Service) SetRoles(ctx context.Context, viewerID, targetID string, roles []string, confirmed bool) error {
	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}

	decision := s.policy.CheckRoleChange(viewer, target, roles, count)
	if !decision.Allowed {
		return decision.Err
	}
	if decision.RequiresConfirmation && !confirmed {
		return internal.NewValidationError(
			"changing role from "+decision.CurrentRole+" to "+decision.TargetRole+" requires confirmation",
			internal.ErrCodeValidationFailed,
		).WithDetails(map[string]string{
			"current_role": decision.CurrentRole,
			"target_role":  decision.TargetRole,
		})
	}

	// The aggregator's repository clears the target's session permission
	// caches in the same transaction as the role swap.
	if err := s.aggregator.SetUserRoles(ctx, targetID, roles); err != nil {
		return err
	}

	s.logger.Info("user roles changed", "user_id", targetID, "roles", roles, "changed_by", viewerID)
	return nil
}

func (s *Service) Activate(ctx context.Context, viewerID, targetID string) error {
	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}
	if decision := s.policy.CanModify(viewer, target, auth.OpActivate, count); !decision.Allowed {
		return decision.Err
	}

	return s.repo.Activate(ctx, targetID)
}

func (s *Service) Deactivate(ctx context.Context, viewerID, targetID string) error {
	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}
	if decision := s.policy.CanModify(viewer, target, auth.OpDeactivate, count); !decision.Allowed {
		return decision.Err
	}

	// The repository repeats the admin-count check inside its transaction;
	// two racing deactivations cannot drop the count to zero.
	if err := s.repo.Deactivate(ctx, targetID); err != nil {
		return err
	}

	if err := s.sessions.RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.Error("failed to revoke sessions after deactivation", "error", err, "user_id", targetID)
	}

	s.logger.Info("user deactivated", "user_id", targetID, "deactivated_by", viewerID)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, viewerID, targetID string, newPassword string) error {
	if len(newPassword) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}

	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}
	if decision := s.policy.CanModify(viewer, target, auth.OpResetPassword, count); !decision.Allowed {
		return decision.Err
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, targetID, hash); err != nil {
		return err
	}

	// A credential reset invalidates every existing session for the target.
	if err := s.sessions.RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", "error", err, "user_id", targetID)
	}

	s.logger.Info("password reset", "user_id", targetID, "reset_by", viewerID)
	return nil
}

func (s *Service) Remove(ctx context.Context, viewerID, targetID string) error {
	viewer, target, err := s.actors(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	count, err := s.directory.CountActiveAdmins(ctx)
	if err != nil {
		return internal.NewStorageError("failed to count active admins", err)
	}
	if decision := s.policy.CanModify(viewer, target, auth.OpRemove, count); !decision.Allowed {
		return decision.Err
	}

	if err := s.sessions.RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.Error("failed to revoke sessions before removal", "error", err, "user_id", targetID)
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}

	s.logger.Info("user removed", "user_id", targetID, "removed_by", viewerID)
	return nil
}
