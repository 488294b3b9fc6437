package postgres

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/asset"
)

type assetRow struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	SerialNumber string    `gorm:"column:serial_number;uniqueIndex;not null"`
	Status       string    `gorm:"column:status;not null"`
	Location     string    `gorm:"column:location"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (assetRow) TableName() string { return "assets" }

// AssetRepository implements asset.Repository using GORM.
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) asset.Repository {
	return &AssetRepository{db: db}
}

// Migrate creates the assets table; used by in-memory test databases.
func (r *AssetRepository) Migrate() error {
	return r.db.AutoMigrate(&assetRow{})
}

func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	row := assetRow(*a)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return internal.ErrDuplicateSerialNumber
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*asset.Asset, error) {
	var row assetRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrAssetNotFound
		}
		return nil, err
	}
	a := asset.Asset(row)
	return &a, nil
}

func (r *AssetRepository) GetBySerialNumber(ctx context.Context, serialNumber string) (*asset.Asset, error) {
	var row assetRow
	err := r.db.WithContext(ctx).Where("serial_number = ?", serialNumber).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrAssetNotFound
		}
		return nil, err
	}
	a := asset.Asset(row)
	return &a, nil
}

func (r *AssetRepository) List(ctx context.Context, limit, offset int) ([]*asset.Asset, error) {
	var rows []assetRow
	err := r.db.WithContext(ctx).
		Order("created_at").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	assets := make([]*asset.Asset, 0, len(rows))
	for i := range rows {
		a := asset.Asset(rows[i])
		assets = append(assets, &a)
	}
	return assets, nil
}

func (r *AssetRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&assetRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrAssetNotFound
	}
	return nil
}
