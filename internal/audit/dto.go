package audit

import (
	"github.com/anditama/inventory-management/internal/core/common/validation"
)

// CreateAuditDTO opens an audit session; location is optional and defaults
// to the global scope.
type CreateAuditDTO struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

func (d CreateAuditDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ImportSerialsDTO carries the scanned serial numbers, typically parsed from
// an uploaded CSV by the UI layer.
type ImportSerialsDTO struct {
	SerialNumbers []string `json:"serial_numbers"`
}

func (d ImportSerialsDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("serial_numbers", d.SerialNumbers).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
