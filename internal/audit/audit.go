package audit

import (
	"context"
	"time"
)

// LocationGlobal is the scope used when an audit is not tied to a physical
// location; the "previous audit" link then resolves among other global
// audits.
const LocationGlobal = "Global"

// Session is one physical-inventory audit event. Items are appended via
// import; nothing else mutates a session after creation.
type Session struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	ComparedAuditID *string   `json:"compared_audit_id,omitempty"`
}

// Item is one scanned serial number within an audit. StatusSnapshot is a
// point-in-time copy of the matched asset's lifecycle status; later asset
// changes never alter it.
type Item struct {
	ID             int64     `json:"id"`
	AuditID        string    `json:"audit_id"`
	SerialNumber   string    `json:"serial_number"`
	AssetID        *string   `json:"asset_id,omitempty"`
	Found          bool      `json:"found"`
	StatusSnapshot *string   `json:"status_snapshot,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatusChange reports one serial whose asset status differs between two
// audits.
type StatusChange struct {
	SerialNumber string `json:"serial_number"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// Diff is the reconciliation report between two audits.
type Diff struct {
	Added         []string       `json:"added"`
	Removed       []string       `json:"removed"`
	StatusChanged []StatusChange `json:"status_changed"`
}

// Repository persists audit sessions and their items.
type Repository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, auditID string) (*Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)

	// LatestSessionForLocation returns the most recent audit for the
	// location, by creation time, or nil when none exists.
	LatestSessionForLocation(ctx context.Context, location string) (*Session, error)

	// UpsertItem inserts or updates atomically on (audit_id, serial_number);
	// concurrent imports of overlapping serials must not duplicate rows.
	UpsertItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, auditID string) ([]*Item, error)
}

// AssetLookup is the audit subsystem's view of the asset registry: resolve a
// scanned serial number to an asset and its current lifecycle status.
type AssetLookup interface {
	LookupSerial(ctx context.Context, serialNumber string) (assetID string, status string, found bool, err error)
}

// Notifier receives the import-completion event; delivery is someone else's
// concern.
type Notifier interface {
	Notify(ctx context.Context, eventType, title, body string, metadata map[string]interface{})
}

type ServiceAPI interface {
	CreateAudit(ctx context.Context, createdBy, name, location string) (*Session, error)
	ImportSerialNumbers(ctx context.Context, auditID string, serials []string) (*ImportResult, error)
	ListAudits(ctx context.Context, limit, offset int) ([]*Session, error)
	GetAudit(ctx context.Context, auditID string) (*Session, error)
	ListItems(ctx context.Context, auditID string) ([]*Item, error)
	DiffAudit(ctx context.Context, auditID string, previousAuditID string) (*Diff, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	AuditID  string `json:"audit_id"`
	Imported int    `json:"imported"`
	Matched  int    `json:"matched"`
	Unknown  int    `json:"unknown"`
}
