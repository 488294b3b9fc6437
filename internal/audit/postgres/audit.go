package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/audit"
)

type sessionRow struct {
	ID              string    `gorm:"column:id;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Location        string    `gorm:"column:location;not null"`
	CreatedBy       string    `gorm:"column:created_by"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	ComparedAuditID *string   `gorm:"column:compared_audit_id"`
}

func (sessionRow) TableName() string { return "audit_sessions" }

type itemRow struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AuditID        string    `gorm:"column:audit_id;not null;uniqueIndex:idx_audit_serial"`
	SerialNumber   string    `gorm:"column:serial_number;not null;uniqueIndex:idx_audit_serial"`
	AssetID        *string   `gorm:"column:asset_id"`
	Found          bool      `gorm:"column:found"`
	StatusSnapshot *string   `gorm:"column:status_snapshot"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (itemRow) TableName() string { return "audit_items" }

// AuditRepository implements audit.Repository using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

// Migrate creates the audit tables; used by in-memory test databases.
func (r *AuditRepository) Migrate() error {
	return r.db.AutoMigrate(&sessionRow{}, &itemRow{})
}

func (r *AuditRepository) CreateSession(ctx context.Context, session *audit.Session) error {
	row := sessionRow{
		ID:              session.ID,
		Name:            session.Name,
		Location:        session.Location,
		CreatedBy:       session.CreatedBy,
		CreatedAt:       session.CreatedAt,
		ComparedAuditID: session.ComparedAuditID,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *AuditRepository) GetSession(ctx context.Context, auditID string) (*audit.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).Where("id = ?", auditID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrAuditNotFound
		}
		return nil, err
	}
	return rowToSession(&row), nil
}

func (r *AuditRepository) ListSessions(ctx context.Context, limit, offset int) ([]*audit.Session, error) {
	var rows []sessionRow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]*audit.Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, rowToSession(&rows[i]))
	}
	return sessions, nil
}

// LatestSessionForLocation picks the newest audit for the location; creation
// time breaks ties between multiple prior audits.
func (r *AuditRepository) LatestSessionForLocation(ctx context.Context, location string) (*audit.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).
		Where("location = ?", location).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rowToSession(&row), nil
}

// UpsertItem is an atomic insert-or-update on (audit_id, serial_number).
// Reimports and concurrent CSV uploads land on the same row instead of
// duplicating it.
func (r *AuditRepository) UpsertItem(ctx context.Context, item *audit.Item) error {
	row := itemRow{
		AuditID:        item.AuditID,
		SerialNumber:   item.SerialNumber,
		AssetID:        item.AssetID,
		Found:          item.Found,
		StatusSnapshot: item.StatusSnapshot,
		CreatedAt:      time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "audit_id"}, {Name: "serial_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"asset_id", "found", "status_snapshot",
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	item.ID = row.ID
	item.CreatedAt = row.CreatedAt
	return nil
}

// ListItems returns items in stable insertion order.
func (r *AuditRepository) ListItems(ctx context.Context, auditID string) ([]*audit.Item, error) {
	var rows []itemRow
	err := r.db.WithContext(ctx).
		Where("audit_id = ?", auditID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]*audit.Item, 0, len(rows))
	for i := range rows {
		row := rows[i]
		items = append(items, &audit.Item{
			ID:             row.ID,
			AuditID:        row.AuditID,
			SerialNumber:   row.SerialNumber,
			AssetID:        row.AssetID,
			Found:          row.Found,
			StatusSnapshot: row.StatusSnapshot,
			CreatedAt:      row.CreatedAt,
		})
	}
	return items, nil
}

func rowToSession(row *sessionRow) *audit.Session {
	return &audit.Session{
		ID:              row.ID,
		Name:            row.Name,
		Location:        row.Location,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt,
		ComparedAuditID: row.ComparedAuditID,
	}
}
