package auth

import (
	"github.com/anditama/inventory-management/internal"
)

// Operation enumerates the administrative actions the mutation policy
// governs.
type Operation string

const (
	OpEditProfile   Operation = "edit_profile"
	OpChangeRoles   Operation = "change_roles"
	OpActivate      Operation = "activate"
	OpDeactivate    Operation = "deactivate"
	OpResetPassword Operation = "reset_password"
	OpRemove        Operation = "remove"
)

// Actor is the policy's view of a user, either the viewer performing an
// operation or the target it acts on.
type Actor struct {
	ID       string
	Roles    []string
	IsActive bool
}

func (a Actor) hasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PolicyDecision carries a machine-distinguishable reason so the caller can
// render the exact message for a rejection instead of a bare Forbidden.
type PolicyDecision struct {
	Allowed bool
	Reason  internal.ErrorCode
	Err     *internal.AppError

	// RequiresConfirmation is set on role changes that demote an admin; the
	// calling layer must obtain explicit confirmation before committing.
	RequiresConfirmation bool
	CurrentRole          string
	TargetRole           string
}

func policyReject(err *internal.AppError) PolicyDecision {
	return PolicyDecision{Reason: err.Code, Err: err}
}

func policyAllow() PolicyDecision {
	return PolicyDecision{Allowed: true}
}

// Policy centralizes every rule about who may change whose roles, status or
// credentials. All administrative mutation paths consult it before touching
// storage, so the rules exist in exactly one place.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// CanModify applies the ordered rule set:
//
//  1. A superadmin target is immutable, regardless of viewer.
//  2. An admin viewer may not act on a different admin target; a superadmin
//     viewer is exempt.
//  3. Deactivating the sole active admin is rejected for every viewer,
//     superadmin included, so an active admin always remains.
//
// activeAdminCount is the current count of active users holding the admin
// role; callers must obtain it in the same transaction as the write to keep
// the last-admin invariant under concurrent requests.
func (p *Policy) CanModify(viewer, target Actor, op Operation, activeAdminCount int64) PolicyDecision {
	if target.hasRole(RoleSuperadmin) {
		return policyReject(internal.ErrTargetIsSuperadmin)
	}

	viewerIsSuperadmin := viewer.hasRole(RoleSuperadmin)
	if !viewerIsSuperadmin && viewer.hasRole(RoleAdmin) && target.hasRole(RoleAdmin) && viewer.ID != target.ID {
		return policyReject(internal.ErrTargetIsOtherAdmin)
	}

	// Removal of the sole active admin would lock the system out the same
	// way deactivation does, so both are guarded.
	if (op == OpDeactivate || op == OpRemove) && target.IsActive && target.hasRole(RoleAdmin) && activeAdminCount <= 1 {
		return policyReject(internal.ErrLastActiveAdmin)
	}

	return policyAllow()
}

// CheckRoleChange validates a role replacement and reports whether the
// change demotes an admin, which the calling layer must confirm explicitly.
func (p *Policy) CheckRoleChange(viewer, target Actor, newRoles []string, activeAdminCount int64) PolicyDecision {
	decision := p.CanModify(viewer, target, OpChangeRoles, activeAdminCount)
	if !decision.Allowed {
		return decision
	}

	newHasAdmin := false
	for _, r := range newRoles {
		if r == RoleAdmin || r == RoleSuperadmin {
			newHasAdmin = true
			break
		}
	}

	decision.CurrentRole = highestRole(target.Roles)
	decision.TargetRole = highestRole(newRoles)
	decision.RequiresConfirmation = target.hasRole(RoleAdmin) && !newHasAdmin
	return decision
}

func highestRole(roles []string) string {
	for _, candidate := range []string{RoleSuperadmin, RoleAdmin, RoleUser} {
		for _, r := range roles {
			if r == candidate {
				return candidate
			}
		}
	}
	return ""
}
