package auth

import (
	"github.com/anditama/inventory-management/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// SetRolePermissionsDTO replaces a role's full grant set.
type SetRolePermissionsDTO struct {
	Permissions []string `json:"permissions"`
}

// SetUserRolesDTO replaces a user's role memberships. Confirm acknowledges
// a demotion away from admin; the handler rejects demotions without it.
type SetUserRolesDTO struct {
	Roles   []string `json:"roles"`
	Confirm bool     `json:"confirm"`
}

func (d SetUserRolesDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("roles", d.Roles).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
