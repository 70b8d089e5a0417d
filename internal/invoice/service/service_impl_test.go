package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/migration"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_invoice_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) invoicedomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auditSvc := auditservice.New(auditservice.Params{DB: db, Node: node, Log: zap.NewNop()})
	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: auditSvc,
	})
}

func patientRef(t *testing.T, db *gorm.DB) snowflake.ID {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	id := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO patients (id, display_name, medical_record_no, created_at) VALUES (?, ?, ?, ?)`,
		id, "Test Patient", fmt.Sprintf("MRN-%d", id), time.Now().UTC(),
	).Error)
	return id
}

func TestCreateInvoiceComputesTotalsAndNumbers(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	first, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 7500},
			{Description: "Blood panel", Category: "LAB", Quantity: 2, UnitAmount: 1500},
		},
		Tax:      500,
		Discount: 1000,
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", first.Number)
	assert.Equal(t, int64(10500), first.Subtotal)
	assert.Equal(t, int64(10000), first.TotalAmount)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, first.Status)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, int64(3000), first.Items[1].Amount)

	second, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-000002", second.Number)
}

func TestInvoiceNumberingContinuesFromLast(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	require.NoError(t, db.Create(&invoicedomain.Invoice{
		ID:          node.Generate(),
		Number:      "INV-000041",
		PatientID:   patientID,
		Subtotal:    1000,
		TotalAmount: 1000,
		Status:      invoicedomain.InvoiceStatusPaid,
		CreatedAt:   clk.Now().Add(-time.Hour),
		UpdatedAt:   clk.Now().Add(-time.Hour),
	}).Error)

	created, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-000042", created.Number)
}

func TestCreateInvoiceValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	_, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrPatientRequired)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{PatientID: patientID})
	assert.ErrorIs(t, err, invoicedomain.ErrNoLineItems)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 0, UnitAmount: 5000},
		},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidLineItem)

	_, err = svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
		Discount: 6000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrNegativeTotal)
}

func TestGetByIDReturnsItems(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	created, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
	})
	require.NoError(t, err)

	loaded, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, loaded.Number)
	assert.Len(t, loaded.Items, 1)

	_, err = svc.GetByID(ctx, created.ID+1)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestCancelInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	created, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusCancelled, cancelled.Status)

	// terminal states cannot be cancelled again
	_, err = svc.Cancel(ctx, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotOpen)
}

func TestCancelInvoiceWithPaymentsRejected(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	pastDue := clk.Now().Add(-48 * time.Hour)
	created, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
		DueAt: &pastDue,
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&paymentdomain.Payment{
		ID:         snowflake.ID(created.ID + 1),
		InvoiceID:  created.ID,
		Amount:     2000,
		Method:     paymentdomain.MethodCash,
		ReceivedBy: "user-1",
		CreatedAt:  clk.Now(),
	}).Error)

	// overdue but partially paid: money on the invoice blocks cancel
	_, err = svc.MarkOverdue(ctx, clk.Now())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, created.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotOpen)
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	pastDue := clk.Now().Add(-48 * time.Hour)
	futureDue := clk.Now().Add(48 * time.Hour)

	stale, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
		DueAt: &pastDue,
	})
	require.NoError(t, err)

	fresh, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		PatientID: patientID,
		Items: []invoicedomain.LineItemInput{
			{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
		},
		DueAt: &futureDue,
	})
	require.NoError(t, err)

	count, err := svc.MarkOverdue(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	loaded, err := svc.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, loaded.Status)

	loaded, err = svc.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, loaded.Status)

	// the sweep leaves one audit trail entry
	var auditCount int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", auditdomain.ActionInvoiceOverdue).
		Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)
	patientID := patientRef(t, db)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
			PatientID: patientID,
			Items: []invoicedomain.LineItemInput{
				{Description: "Consultation", Category: "CONSULTATION", Quantity: 1, UnitAmount: 5000},
			},
		})
		require.NoError(t, err)
	}

	req := invoicedomain.ListInvoiceRequest{Status: invoicedomain.InvoiceStatusPending}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextPageToken)

	req.PageToken = page.NextPageToken
	rest, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, rest.Invoices, 1)
	assert.False(t, rest.HasMore)

	other := snowflake.ID(12345)
	filtered, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{PatientID: &other})
	require.NoError(t, err)
	assert.Empty(t, filtered.Invoices)
}
