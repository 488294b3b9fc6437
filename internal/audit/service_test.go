package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/anditama/inventory-management/internal"
)

func TestAudit(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Audit Module Suite")
}

// Mock Repository for testing
type mockRepository struct {
	sessions map[string]*Session
	items    map[string][]*Item // audit id -> items in insertion order
	order    []string           // session ids in creation order
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sessions: make(map[string]*Session),
		items:    make(map[string][]*Item),
	}
}

func (m *mockRepository) CreateSession(_ context.Context, session *Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	m.order = append(m.order, session.ID)
	return nil
}

func (m *mockRepository) GetSession(_ context.Context, auditID string) (*Session, error) {
	if s, ok := m.sessions[auditID]; ok {
		return s, nil
	}
	return nil, internal.ErrAuditNotFound
}

func (m *mockRepository) ListSessions(_ context.Context, limit, offset int) ([]*Session, error) {
	out := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id])
	}
	return out, nil
}

func (m *mockRepository) LatestSessionForLocation(_ context.Context, location string) (*Session, error) {
	var latest *Session
	for _, id := range m.order {
		s := m.sessions[id]
		if s.Location == location {
			latest = s
		}
	}
	return latest, nil
}

func (m *mockRepository) UpsertItem(_ context.Context, item *Item) error {
	copied := *item
	for i, existing := range m.items[item.AuditID] {
		if existing.SerialNumber == item.SerialNumber {
			m.items[item.AuditID][i] = &copied
			return nil
		}
	}
	m.items[item.AuditID] = append(m.items[item.AuditID], &copied)
	return nil
}

func (m *mockRepository) ListItems(_ context.Context, auditID string) ([]*Item, error) {
	return m.items[auditID], nil
}

// Mock AssetLookup for testing
type mockAssetLookup struct {
	assets map[string]struct {
		id     string
		status string
	}
}

func (m *mockAssetLookup) LookupSerial(_ context.Context, serialNumber string) (string, string, bool, error) {
	if a, ok := m.assets[serialNumber]; ok {
		return a.id, a.status, true, nil
	}
	return "", "", false, nil
}

// Mock Notifier capturing published events
type mockNotifier struct {
	events []string
}

func (m *mockNotifier) Notify(_ context.Context, eventType, _, _ string, _ map[string]interface{}) {
	m.events = append(m.events, eventType)
}

var _ = ginkgo.Describe("AuditService", func() {
	var (
		service  *Service
		repo     *mockRepository
		assets   *mockAssetLookup
		notifier *mockNotifier
	)

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		assets = &mockAssetLookup{assets: map[string]struct {
			id     string
			status string
		}{
			"SN-1": {id: "asset-1", status: "In Use"},
			"SN-2": {id: "asset-2", status: "In Storage"},
		}}
		notifier = &mockNotifier{}
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = NewService(repo, assets, notifier, lg)
	})

	ginkgo.Describe("CreateAudit", func() {
		ginkgo.It("should default the location to Global", func() {
			session, err := service.CreateAudit(context.Background(), "u-1", "Q1 audit", "")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(session.Location).To(gomega.Equal(LocationGlobal))
			gomega.Expect(session.ComparedAuditID).To(gomega.BeNil())
		})

		ginkgo.It("should link the newest prior audit for the same location", func() {
			first, err := service.CreateAudit(context.Background(), "u-1", "Q1 HQ", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.CreateAudit(context.Background(), "u-1", "Q1 Warehouse", "Warehouse")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := service.CreateAudit(context.Background(), "u-1", "Q2 HQ", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(second.ComparedAuditID).ToNot(gomega.BeNil())
			gomega.Expect(*second.ComparedAuditID).To(gomega.Equal(first.ID))
		})

		ginkgo.It("should reject an empty name", func() {
			_, err := service.CreateAudit(context.Background(), "u-1", "  ", "HQ")

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ImportSerialNumbers", func() {
		var auditID string

		ginkgo.BeforeEach(func() {
			session, err := service.CreateAudit(context.Background(), "u-1", "Q1", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			auditID = session.ID
		})

		ginkgo.It("should snapshot matched assets and count unknowns", func() {
			result, err := service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1", "SN-2", "SN-404"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Imported).To(gomega.Equal(3))
			gomega.Expect(result.Matched).To(gomega.Equal(2))
			gomega.Expect(result.Unknown).To(gomega.Equal(1))

			items, err := service.ListItems(context.Background(), auditID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(items).To(gomega.HaveLen(3))
			gomega.Expect(items[0].Found).To(gomega.BeTrue())
			gomega.Expect(*items[0].StatusSnapshot).To(gomega.Equal("In Use"))
			gomega.Expect(items[2].Found).To(gomega.BeFalse())
			gomega.Expect(items[2].AssetID).To(gomega.BeNil())
		})

		ginkgo.It("should dedupe serials within one import", func() {
			result, err := service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1", " SN-1 ", "SN-1"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.Imported).To(gomega.Equal(1))
		})

		ginkgo.It("should be idempotent across repeated imports", func() {
			_, err := service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1", "SN-2"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1", "SN-2"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			items, err := service.ListItems(context.Background(), auditID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(items).To(gomega.HaveLen(2))
		})

		ginkgo.It("should reject blank serial numbers without persisting anything", func() {
			_, err := service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1", "  "})

			gomega.Expect(err).To(gomega.HaveOccurred())

			// A malformed row anywhere in the upload aborts the whole import.
			items, listErr := repo.ListItems(context.Background(), auditID)
			gomega.Expect(listErr).ToNot(gomega.HaveOccurred())
			gomega.Expect(items).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject an unknown audit id", func() {
			_, err := service.ImportSerialNumbers(context.Background(), "missing", []string{"SN-1"})

			gomega.Expect(err).To(gomega.Equal(internal.ErrAuditNotFound))
		})

		ginkgo.It("should publish an import-completed event", func() {
			_, err := service.ImportSerialNumbers(context.Background(), auditID, []string{"SN-1"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(notifier.events).To(gomega.ContainElement("audit.import.completed"))
		})
	})

	ginkgo.Describe("DiffAudit", func() {
		ginkgo.It("should fall back to the session's compared-audit link", func() {
			first, err := service.CreateAudit(context.Background(), "u-1", "Q1", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = service.ImportSerialNumbers(context.Background(), first.ID, []string{"SN-1", "SN-2"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := service.CreateAudit(context.Background(), "u-1", "Q2", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = service.ImportSerialNumbers(context.Background(), second.ID, []string{"SN-2", "SN-3"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			diff, err := service.DiffAudit(context.Background(), second.ID, "")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(diff.Added).To(gomega.Equal([]string{"SN-3"}))
			gomega.Expect(diff.Removed).To(gomega.Equal([]string{"SN-1"}))
		})

		ginkgo.It("should report everything as added when no baseline exists", func() {
			session, err := service.CreateAudit(context.Background(), "u-1", "Q1", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = service.ImportSerialNumbers(context.Background(), session.ID, []string{"SN-1", "SN-2"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			diff, err := service.DiffAudit(context.Background(), session.ID, "")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(diff.Added).To(gomega.Equal([]string{"SN-1", "SN-2"}))
			gomega.Expect(diff.Removed).To(gomega.BeEmpty())
		})

		ginkgo.It("should refuse an explicit previous audit that does not exist", func() {
			session, err := service.CreateAudit(context.Background(), "u-1", "Q1", "HQ")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.DiffAudit(context.Background(), session.ID, "missing")

			gomega.Expect(err).To(gomega.Equal(internal.ErrAuditNotFound))
		})
	})
})
