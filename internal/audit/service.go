package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/internal/obs"
)

// Service owns the audit lifecycle: creation with previous-audit linkage,
// idempotent serial-number imports, and reconciliation against the linked
// previous audit.
type Service struct {
	repo     Repository
	assets   AssetLookup
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, assets AssetLookup, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		assets:   assets,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateAudit opens a new audit session. The most recent prior audit for the
// same location (Global when unscoped) becomes the comparison baseline.
func (s *Service) CreateAudit(ctx context.Context, createdBy, name, location string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, internal.NewValidationError("audit name is required", internal.ErrCodeValidationFailed)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = LocationGlobal
	}

	session := &Session{
		ID:        ulid.Make().String(),
		Name:      name,
		Location:  location,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}

	previous, err := s.repo.LatestSessionForLocation(ctx, location)
	if err != nil {
		return nil, internal.NewStorageError("failed to resolve previous audit", err)
	}
	if previous != nil {
		session.ComparedAuditID = &previous.ID
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, internal.NewStorageError("failed to create audit session", err)
	}

	s.logger.Info("audit session created",
		"audit_id", session.ID,
		"location", location,
		"compared_audit_id", session.ComparedAuditID,
		"created_by", createdBy)

	return session, nil
}

// ImportSerialNumbers upserts one item per serial, keyed (audit_id,
// serial_number). Reimporting the same list updates rows in place, so a
// corrected CSV upload is safe. The status snapshot is copied from the asset
// at this moment and never revisited.
func (s *Service) ImportSerialNumbers(ctx context.Context, auditID string, serials []string) (*ImportResult, error) {
	session, err := s.repo.GetSession(ctx, auditID)
	if err != nil {
		return nil, err
	}

	// The whole list is cleaned before the first write; a malformed serial
	// anywhere in the upload must not leave a partial import behind.
	cleaned := make([]string, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, raw := range serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			return nil, internal.NewValidationError("serial numbers must be non-empty", internal.ErrCodeInvalidSerial)
		}
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}
		cleaned = append(cleaned, serial)
	}

	result := &ImportResult{AuditID: session.ID}

	for _, serial := range cleaned {
		item := &Item{
			AuditID:      session.ID,
			SerialNumber: serial,
		}

		assetID, status, found, err := s.assets.LookupSerial(ctx, serial)
		if err != nil {
			return nil, internal.NewStorageError("asset lookup failed", err)
		}
		if found {
			item.AssetID = &assetID
			item.Found = true
			if status != "" {
				snapshot := status
				item.StatusSnapshot = &snapshot
			}
			result.Matched++
		} else {
			result.Unknown++
		}

		if err := s.repo.UpsertItem(ctx, item); err != nil {
			return nil, internal.NewStorageError("failed to upsert audit item", err)
		}
		result.Imported++
	}

	obs.AuditImport(result.Imported)
	s.logger.Info("serial numbers imported",
		"audit_id", session.ID,
		"imported", result.Imported,
		"matched", result.Matched,
		"unknown", result.Unknown)

	if s.notifier != nil {
		s.notifier.Notify(ctx, "audit.import.completed",
			"Audit import completed",
			"Imported "+session.Name,
			map[string]interface{}{
				"audit_id": session.ID,
				"imported": result.Imported,
				"matched":  result.Matched,
				"unknown":  result.Unknown,
			})
	}

	return result, nil
}

func (s *Service) ListAudits(ctx context.Context, limit, offset int) ([]*Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListSessions(ctx, limit, offset)
}

func (s *Service) GetAudit(ctx context.Context, auditID string) (*Session, error) {
	return s.repo.GetSession(ctx, auditID)
}

func (s *Service) ListItems(ctx context.Context, auditID string) ([]*Item, error) {
	if _, err := s.repo.GetSession(ctx, auditID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, auditID)
}

// DiffAudit reconciles an audit against previousAuditID, or against the
// session's own compared-audit link when previousAuditID is empty. An audit
// with no previous baseline diffs against an empty item list: everything
// scanned reports as added.
func (s *Service) DiffAudit(ctx context.Context, auditID string, previousAuditID string) (*Diff, error) {
	session, err := s.repo.GetSession(ctx, auditID)
	if err != nil {
		return nil, err
	}

	if previousAuditID == "" && session.ComparedAuditID != nil {
		previousAuditID = *session.ComparedAuditID
	}

	var previousItems []*Item
	if previousAuditID != "" {
		if _, err := s.repo.GetSession(ctx, previousAuditID); err != nil {
			return nil, err
		}
		previousItems, err = s.repo.ListItems(ctx, previousAuditID)
		if err != nil {
			return nil, internal.NewStorageError("failed to list previous audit items", err)
		}
	}

	currentItems, err := s.repo.ListItems(ctx, auditID)
	if err != nil {
		return nil, internal.NewStorageError("failed to list audit items", err)
	}

	diff := ComputeDiff(previousItems, currentItems)
	return &diff, nil
}
