package audit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/anditama/inventory-management/internal"
)

var _ = ginkgo.Describe("AuditHandler", func() {
	var handler *Handler

	ginkgo.BeforeEach(func() {
		repo := newMockRepository()
		assets := &mockAssetLookup{}
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler = NewHandler(NewService(repo, assets, nil, lg))
	})

	newRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/audits", strings.NewReader(body))
		caller := &internal.Caller{UserID: "u-1", Role: "admin"}
		return req.WithContext(internal.ContextWithCaller(context.Background(), caller))
	}

	ginkgo.It("should answer invalid input with a reason-coded error body", func() {
		rec := httptest.NewRecorder()

		handler.Create(rec, newRequest(`{"name":""}`))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		body := rec.Body.String()
		gomega.Expect(body).To(gomega.ContainSubstring("VALIDATION_FAILED"))
		gomega.Expect(body).To(gomega.ContainSubstring(`"details"`))
	})

	ginkgo.It("should reject an empty serial list with a reason-coded error body", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/audits/01A/import", strings.NewReader(`{"serial_numbers":[]}`))

		handler.Import(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("VALIDATION_FAILED"))
	})
})
