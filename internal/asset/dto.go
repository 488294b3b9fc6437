package asset

import (
	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/core/common/validation"
)

type CreateAssetDTO struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status,omitempty"`
	Location     string `json:"location,omitempty"`
}

func (d CreateAssetDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("serial_number", d.SerialNumber).Required().MaxLength(128)
	v.Field("status", d.Status).OneOf(KnownStatuses(), internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateStatusDTO struct {
	Status string `json:"status"`
}

func (d UpdateStatusDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(KnownStatuses(), internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
