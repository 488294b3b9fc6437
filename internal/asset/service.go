package asset

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anditama/inventory-management/internal"
)

type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func (s *Service) Create(ctx context.Context, dto CreateAssetDTO) (*Asset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = StatusInStorage
	}
	if !IsKnownStatus(status) {
		return nil, internal.NewValidationError("unknown asset status "+status, internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	a := &Asset{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(dto.Name),
		SerialNumber: strings.TrimSpace(dto.SerialNumber),
		Status:       status,
		Location:     strings.TrimSpace(dto.Location),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("asset created", "asset_id", a.ID, "serial_number", a.SerialNumber)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Asset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Asset, error) {
	if !IsKnownStatus(status) {
		return nil, internal.NewValidationError("unknown asset status "+status, internal.ErrCodeValidationFailed)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := a.Status
	if previous == status {
		return a, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status

	s.logger.Info("asset status changed", "asset_id", id, "from", previous, "to", status)
	if s.notifier != nil {
		s.notifier.Notify(ctx, "asset.status.changed",
			"Asset status changed",
			a.Name+" moved from "+previous+" to "+status,
			map[string]interface{}{
				"asset_id": id,
				"from":     previous,
				"to":       status,
			})
	}

	return a, nil
}

// LookupSerial answers the audit import's question: does a live asset with
// this serial exist, and what is its current status.
func (s *Service) LookupSerial(ctx context.Context, serialNumber string) (string, string, bool, error) {
	a, err := s.repo.GetBySerialNumber(ctx, serialNumber)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeAssetNotFound {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return a.ID, a.Status, true, nil
}
