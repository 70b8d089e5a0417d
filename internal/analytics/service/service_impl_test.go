package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/clinicore/ledger/internal/analytics/domain"
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

	dsn := fmt.Sprintf("file:memdb_analytics_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) analyticsdomain.Service {
	t.Helper()

	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clk,
		Location: time.UTC,
	})
}

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return node
}

func seedInvoiceWithPayments(t *testing.T, db *gorm.DB, node *snowflake.Node, total int64, status invoicedomain.InvoiceStatus, createdAt time.Time, payments ...int64) snowflake.ID {
	t.Helper()

	invoice := invoicedomain.Invoice{
		ID:          node.Generate(),
		Number:      fmt.Sprintf("INV-%06d", node.Generate()%1000000),
		PatientID:   node.Generate(),
		Subtotal:    total,
		TotalAmount: total,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&invoice).Error)

	for _, amount := range payments {
		require.NoError(t, db.Create(&paymentdomain.Payment{
			ID:         node.Generate(),
			InvoiceID:  invoice.ID,
			Amount:     amount,
			Method:     paymentdomain.MethodCash,
			ReceivedBy: "user-1",
			CreatedAt:  createdAt,
		}).Error)
	}
	return invoice.ID
}

func TestMonthlyTrendZeroFillsQuietMonths(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := testNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	// activity only in June and August
	seedInvoiceWithPayments(t, db, node, 5000, invoicedomain.InvoiceStatusPaid,
		time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC), 5000)
	seedInvoiceWithPayments(t, db, node, 7000, invoicedomain.InvoiceStatusPaid,
		time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC), 7000)

	trend, err := svc.MonthlyTrend(ctx, 4)
	require.NoError(t, err)
	require.Len(t, trend, 4)

	assert.Equal(t, time.May, trend[0].Month)
	assert.Equal(t, int64(0), trend[0].Total)
	assert.Equal(t, int64(5000), trend[1].Total)
	assert.Equal(t, int64(0), trend[2].Total)
	assert.Equal(t, int64(7000), trend[3].Total)
}

func TestForecastProjectsLinearGrowth(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := testNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	// 12 monthly totals 100.00, 110.00, ... 210.00
	start := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		amount := int64(10000 + i*1000)
		at := start.AddDate(0, i, 0)
		seedInvoiceWithPayments(t, db, node, amount, invoicedomain.InvoiceStatusPaid, at, amount)
	}

	forecast, err := svc.Forecast(ctx)
	require.NoError(t, err)
	require.Len(t, forecast.History, 12)
	require.Len(t, forecast.Projections, 3)

	assert.InDelta(t, 1000.0, forecast.Slope, 1e-6)
	assert.InDelta(t, 10000.0, forecast.Intercept, 1e-6)

	// month 13 projects 220.00, continuing the line
	assert.Equal(t, int64(22000), forecast.Projections[0].Amount)
	assert.Equal(t, int64(23000), forecast.Projections[1].Amount)
	assert.Equal(t, int64(24000), forecast.Projections[2].Amount)
	assert.Equal(t, time.September, forecast.Projections[0].Month)
}

func TestForecastFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := testNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	// steep decline: projections would go negative without the floor
	start := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		amount := int64(24000 - i*2000)
		if amount <= 0 {
			continue
		}
		at := start.AddDate(0, i, 0)
		seedInvoiceWithPayments(t, db, node, amount, invoicedomain.InvoiceStatusPaid, at, amount)
	}

	forecast, err := svc.Forecast(ctx)
	require.NoError(t, err)
	for _, p := range forecast.Projections {
		assert.GreaterOrEqual(t, p.Amount, int64(0))
	}
}

func TestARAgingBuckets(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := testNode(t)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, db, clk)

	// 45 days old with 50.00 outstanding -> 31-60 bucket
	seedInvoiceWithPayments(t, db, node, 10000, invoicedomain.InvoiceStatusPartial,
		now.AddDate(0, 0, -45), 5000)
	// 10 days old, fully unpaid -> 0-30 bucket
	seedInvoiceWithPayments(t, db, node, 3000, invoicedomain.InvoiceStatusPending,
		now.AddDate(0, 0, -10))
	// 200 days old overdue -> 121+ bucket
	seedInvoiceWithPayments(t, db, node, 8000, invoicedomain.InvoiceStatusOverdue,
		now.AddDate(0, 0, -200))
	// settled invoices never appear
	seedInvoiceWithPayments(t, db, node, 6000, invoicedomain.InvoiceStatusPaid,
		now.AddDate(0, 0, -45), 6000)

	report, err := svc.ARAging(ctx)
	require.NoError(t, err)
	require.Len(t, report.Buckets, 5)

	assert.Equal(t, int64(3000), report.Buckets[0].Outstanding)
	assert.Equal(t, int64(1), report.Buckets[0].InvoiceCount)

	assert.Equal(t, "31-60", report.Buckets[1].Label)
	assert.Equal(t, int64(5000), report.Buckets[1].Outstanding)
	assert.Equal(t, int64(1), report.Buckets[1].InvoiceCount)

	assert.Equal(t, int64(0), report.Buckets[2].Outstanding)
	assert.Equal(t, int64(0), report.Buckets[3].Outstanding)

	assert.Equal(t, int64(8000), report.Buckets[4].Outstanding)
	assert.Equal(t, int64(16000), report.TotalOutstanding)
}

func TestRevenueByMethodAndDefaults(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := testNode(t)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, db, clk)

	// current month
	invoiceID := seedInvoiceWithPayments(t, db, node, 10000, invoicedomain.InvoiceStatusPaid,
		time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC), 10000)
	_ = invoiceID
	// prior month stays outside the default range
	seedInvoiceWithPayments(t, db, node, 4000, invoicedomain.InvoiceStatusPaid,
		time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC), 4000)

	report, err := svc.Revenue(ctx, analyticsdomain.RangeRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), report.Total)
	require.Len(t, report.ByMethod, 1)
	assert.Equal(t, string(paymentdomain.MethodCash), report.ByMethod[0].Key)
	assert.Equal(t, int64(10000), report.ByMethod[0].Amount)

	// explicit range picks up both months
	report, err = svc.Revenue(ctx, analyticsdomain.RangeRequest{From: "2026-07-01", To: "2026-08-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(14000), report.Total)

	_, err = svc.Revenue(ctx, analyticsdomain.RangeRequest{From: "2026-08-31", To: "2026-07-01"})
	assert.ErrorIs(t, err, analyticsdomain.ErrInvalidDateRange)
}
