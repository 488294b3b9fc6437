package asset

import (
	"context"
	"time"
)

// Lifecycle statuses an asset moves through.
const (
	StatusInUse       = "In Use"
	StatusInStorage   = "In Storage"
	StatusUnderRepair = "Under Repair"
	StatusRetired     = "Retired"
	StatusLost        = "Lost"
)

func KnownStatuses() []string {
	return []string{StatusInUse, StatusInStorage, StatusUnderRepair, StatusRetired, StatusLost}
}

func IsKnownStatus(status string) bool {
	switch status {
	case StatusInUse, StatusInStorage, StatusUnderRepair, StatusRetired, StatusLost:
		return true
	}
	return false
}

// Asset is a tracked hardware item. Serial numbers are the natural key
// physical audits scan against.
type Asset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SerialNumber string    `json:"serial_number"`
	Status       string    `json:"status"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	GetBySerialNumber(ctx context.Context, serialNumber string) (*Asset, error)
	List(ctx context.Context, limit, offset int) ([]*Asset, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Notifier receives status-change events.
type Notifier interface {
	Notify(ctx context.Context, eventType, title, body string, metadata map[string]interface{})
}

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateAssetDTO) (*Asset, error)
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, limit, offset int) ([]*Asset, error)
	UpdateStatus(ctx context.Context, id, status string) (*Asset, error)
	LookupSerial(ctx context.Context, serialNumber string) (assetID string, status string, found bool, err error)
}
