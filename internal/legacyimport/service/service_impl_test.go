package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	"github.com/clinicore/ledger/internal/clock"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	directorydomain "github.com/clinicore/ledger/internal/directory/domain"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	expenseservice "github.com/clinicore/ledger/internal/expense/service"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	legacydomain "github.com/clinicore/ledger/internal/legacyimport/domain"
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

	dsn := fmt.Sprintf("file:memdb_legacy_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) legacydomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	expenseSvc := expenseservice.NewService(expenseservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Location: time.UTC,
	})
	auditSvc := auditservice.New(auditservice.Params{DB: db, Node: node, Log: zap.NewNop()})
	return NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Location:   time.UTC,
		ExpenseSvc: expenseSvc,
		AuditSvc:   auditSvc,
	})
}

func TestImportDayCreatesLedgerTriple(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	result, err := svc.Import(ctx, legacydomain.ImportRequest{
		Days: []legacydomain.LegacyDay{
			{Date: "2019-03-07", Amount: 45000, PatientCount: 12},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DaysImported)
	assert.Equal(t, 0, result.DaysSkipped)

	var invoice invoicedomain.Invoice
	require.NoError(t, db.First(&invoice, "number = ?", "LEG-20190307").Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, int64(45000), invoice.TotalAmount)

	var payment paymentdomain.Payment
	require.NoError(t, db.First(&payment, "invoice_id = ?", invoice.ID).Error)
	assert.Equal(t, paymentdomain.MethodCash, payment.Method)
	assert.Equal(t, int64(45000), payment.Amount)

	var closing closingdomain.DailyClosing
	require.NoError(t, db.First(&closing, "closing_date = ?", "2019-03-07").Error)
	assert.Equal(t, closingdomain.ClosingStatusClosed, closing.Status)
	assert.Equal(t, int64(45000), closing.ExpectedCash)
	assert.Equal(t, int64(0), closing.VarianceTotal)
	assert.Equal(t, int64(12), closing.PatientsSeen)
	assert.Equal(t, int64(0), closing.ConsultationCount)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	req := legacydomain.ImportRequest{
		Days: []legacydomain.LegacyDay{
			{Date: "2019-03-07", Amount: 45000},
			{Date: "2019-03-08", Amount: 52000},
		},
	}

	first, err := svc.Import(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.DaysImported)

	second, err := svc.Import(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DaysImported)
	assert.Equal(t, 2, second.DaysSkipped)

	var invoiceCount int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&invoiceCount).Error)
	assert.Equal(t, int64(2), invoiceCount)

	// one reserved walk-in patient regardless of batch count
	var patientCount int64
	require.NoError(t, db.Model(&directorydomain.Patient{}).
		Where("medical_record_no = ?", "LEGACY-WALKIN").
		Count(&patientCount).Error)
	assert.Equal(t, int64(1), patientCount)
}

func TestImportSkipsClosedDays(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	require.NoError(t, db.Create(&closingdomain.DailyClosing{
		ID:          node.Generate(),
		ClosingDate: "2019-03-07",
		Status:      closingdomain.ClosingStatusClosed,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}).Error)

	result, err := svc.Import(ctx, legacydomain.ImportRequest{
		Days: []legacydomain.LegacyDay{
			{Date: "2019-03-07", Amount: 45000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.DaysImported)
	assert.Equal(t, 1, result.DaysSkipped)

	var invoiceCount int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&invoiceCount).Error)
	assert.Equal(t, int64(0), invoiceCount)
}

func TestImportExpensesMatchAndCorrect(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Import(ctx, legacydomain.ImportRequest{
		Expenses: []legacydomain.LegacyExpense{
			{CategoryName: "Rent", Description: "Clinic rent", Amount: 250000, Month: "2019-03"},
		},
	})
	require.NoError(t, err)

	// same (category, month, description) with a corrected amount
	// updates in place instead of duplicating
	_, err = svc.Import(ctx, legacydomain.ImportRequest{
		Expenses: []legacydomain.LegacyExpense{
			{CategoryName: "Rent", Description: "Clinic rent", Amount: 260000, Month: "2019-03"},
		},
	})
	require.NoError(t, err)

	var expenses []expensedomain.Expense
	require.NoError(t, db.Find(&expenses).Error)
	require.Len(t, expenses, 1)
	assert.Equal(t, int64(260000), expenses[0].Amount)

	var categoryCount int64
	require.NoError(t, db.Model(&expensedomain.ExpenseCategory{}).
		Where("name = ?", "Rent").
		Count(&categoryCount).Error)
	assert.Equal(t, int64(1), categoryCount)
}

func TestImportValidatesInput(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Import(ctx, legacydomain.ImportRequest{})
	assert.ErrorIs(t, err, legacydomain.ErrEmptyBatch)

	_, err = svc.Import(ctx, legacydomain.ImportRequest{
		Days: []legacydomain.LegacyDay{{Date: "2019-03-07", Amount: 0}},
	})
	assert.ErrorIs(t, err, legacydomain.ErrInvalidDay)

	_, err = svc.Import(ctx, legacydomain.ImportRequest{
		Expenses: []legacydomain.LegacyExpense{
			{CategoryName: "Rent", Description: "Clinic rent", Amount: 1000, Month: "March 2019"},
		},
	})
	assert.ErrorIs(t, err, legacydomain.ErrInvalidMonth)
}
