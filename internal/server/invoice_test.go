package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/gin-gonic/gin"
)

type fakeInvoiceService struct {
	invoicedomain.Service

	markOverdueCalls int
	lastAsOf         time.Time
}

func (f *fakeInvoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	f.markOverdueCalls++
	f.lastAsOf = asOf
	_ = ctx
	return 3, nil
}

func TestMarkInvoicesOverdueUsesInjectedClock(t *testing.T) {
	gin.SetMode(gin.TestMode)

	fixed := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	invoiceSvc := &fakeInvoiceService{}
	srv := &Server{
		clock:      clock.NewFakeClock(fixed),
		invoiceSvc: invoiceSvc,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/invoices/mark-overdue", srv.MarkInvoicesOverdue)

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/mark-overdue", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if invoiceSvc.markOverdueCalls != 1 {
		t.Fatalf("expected one MarkOverdue call, got %d", invoiceSvc.markOverdueCalls)
	}
	if !invoiceSvc.lastAsOf.Equal(fixed) {
		t.Fatalf("expected as-of %v, got %v", fixed, invoiceSvc.lastAsOf)
	}
	if !strings.Contains(resp.Body.String(), `"marked_overdue":3`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}
