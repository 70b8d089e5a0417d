package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/migration"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_writeoff_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) writeoffdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC))
	auditSvc := auditservice.New(auditservice.Params{DB: db, Node: node, Log: zap.NewNop()})
	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: auditSvc,
	})
}

func seedInvoiceWithPayment(t *testing.T, db *gorm.DB, total, paid int64) invoicedomain.Invoice {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	status := invoicedomain.InvoiceStatusPending
	if paid > 0 {
		status = invoicedomain.InvoiceStatusPartial
	}
	invoice := invoicedomain.Invoice{
		ID:          node.Generate(),
		Number:      fmt.Sprintf("INV-%06d", node.Generate()%1000000),
		PatientID:   node.Generate(),
		Subtotal:    total,
		TotalAmount: total,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&invoice).Error)

	if paid > 0 {
		require.NoError(t, db.Create(&paymentdomain.Payment{
			ID:         node.Generate(),
			InvoiceID:  invoice.ID,
			Amount:     paid,
			Method:     paymentdomain.MethodCash,
			ReceivedBy: "user-1",
			CreatedAt:  time.Now().UTC(),
		}).Error)
	}
	return invoice
}

func TestWriteOffCompletesInvoice(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	// 100.00 invoice with 60.00 paid leaves 40.00 to resolve
	invoice := seedInvoiceWithPayment(t, db, 10000, 6000)

	writeOff, err := svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     4000,
		Reason:     writeoffdomain.ReasonInsuranceAdjustment,
		ApprovedBy: "manager-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), writeOff.Amount)

	var loaded invoicedomain.Invoice
	require.NoError(t, db.First(&loaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, loaded.Status)
}

func TestWriteOffLeavesStatusWhenBalanceRemains(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	invoice := seedInvoiceWithPayment(t, db, 10000, 0)

	_, err := svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     3000,
		Reason:     writeoffdomain.ReasonOther,
		ApprovedBy: "manager-1",
	})
	require.NoError(t, err)

	// a write-off alone never produces PARTIAL
	var loaded invoicedomain.Invoice
	require.NoError(t, db.First(&loaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPending, loaded.Status)
}

func TestWriteOffRejectsExcessAmount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	invoice := seedInvoiceWithPayment(t, db, 10000, 6000)

	_, err := svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     3000,
		Reason:     writeoffdomain.ReasonBadDebt,
		ApprovedBy: "manager-1",
	})
	require.NoError(t, err)

	// remaining is now 10.00; writing off 20.00 is rejected with it
	_, err = svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     2000,
		Reason:     writeoffdomain.ReasonBadDebt,
		ApprovedBy: "manager-1",
	})
	var excess *writeoffdomain.ExcessWriteOffError
	require.ErrorAs(t, err, &excess)
	assert.Equal(t, int64(1000), excess.Remaining)
	assert.Contains(t, excess.Error(), "10.00")

	writeOffs, err := svc.ListByInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, writeOffs, 1)
}

func TestWriteOffValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newTestService(t, db)

	invoice := seedInvoiceWithPayment(t, db, 10000, 0)

	_, err := svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     0,
		Reason:     writeoffdomain.ReasonCourtesy,
		ApprovedBy: "manager-1",
	})
	assert.ErrorIs(t, err, writeoffdomain.ErrAmountNotPositive)

	_, err = svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID:  invoice.ID,
		Amount:     100,
		Reason:     writeoffdomain.Reason("GOODWILL"),
		ApprovedBy: "manager-1",
	})
	assert.ErrorIs(t, err, writeoffdomain.ErrInvalidReason)

	_, err = svc.Create(ctx, writeoffdomain.CreateWriteOffRequest{
		InvoiceID: invoice.ID,
		Amount:    100,
		Reason:    writeoffdomain.ReasonCourtesy,
	})
	assert.ErrorIs(t, err, writeoffdomain.ErrMissingApprover)
}
