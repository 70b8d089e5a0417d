// Package service implements the revenue analytics engine.
package service

import (
	"context"
	"math"
	"time"

	analyticsdomain "github.com/clinicore/ledger/internal/analytics/domain"
	"github.com/clinicore/ledger/internal/clock"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	forecastHistoryMonths   = 12
	forecastHorizonMonths   = 3
	defaultTrendWindowMonth = 12
	maxTrendWindowMonths    = 60
)

// ServiceParam declares dependencies for the analytics service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Location *time.Location
}

// Service implements analyticsdomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	loc   *time.Location
}

// NewService builds the analytics service.
func NewService(p ServiceParam) analyticsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		clock: p.Clock,
		loc:   p.Location,
	}
}

// Revenue reports collected totals over the range, broken down by
// payment method, billing provider, provider specialty, and service
// category. Method, provider, and specialty slices follow the money
// (payments); the category slice follows what was billed (line items),
// since a payment does not identify which lines it covers.
func (s *Service) Revenue(ctx context.Context, req analyticsdomain.RangeRequest) (analyticsdomain.RevenueReport, error) {
	from, to, err := s.resolveRange(req)
	if err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	report := analyticsdomain.RevenueReport{From: from, To: to}
	db := s.db.WithContext(ctx)

	if err := db.Model(&paymentdomain.Payment{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&report.Total).Error; err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	if err := db.Raw(
		`SELECT method AS key, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count
		 FROM payments
		 WHERE created_at >= ? AND created_at < ?
		 GROUP BY method
		 ORDER BY amount DESC`,
		from, to,
	).Scan(&report.ByMethod).Error; err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	if err := db.Raw(
		`SELECT CAST(i.provider_id AS TEXT) AS key, pr.display_name AS label,
		        COALESCE(SUM(p.amount), 0) AS amount, COUNT(p.id) AS count
		 FROM payments p
		 JOIN invoices i ON i.id = p.invoice_id
		 LEFT JOIN providers pr ON pr.id = i.provider_id
		 WHERE p.created_at >= ? AND p.created_at < ? AND i.provider_id IS NOT NULL
		 GROUP BY i.provider_id, pr.display_name
		 ORDER BY amount DESC`,
		from, to,
	).Scan(&report.ByProvider).Error; err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	if err := db.Raw(
		`SELECT pr.specialty AS key, COALESCE(SUM(p.amount), 0) AS amount, COUNT(p.id) AS count
		 FROM payments p
		 JOIN invoices i ON i.id = p.invoice_id
		 JOIN providers pr ON pr.id = i.provider_id
		 WHERE p.created_at >= ? AND p.created_at < ?
		 GROUP BY pr.specialty
		 ORDER BY amount DESC`,
		from, to,
	).Scan(&report.BySpecialty).Error; err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	if err := db.Raw(
		`SELECT it.category AS key, COALESCE(SUM(it.amount), 0) AS amount, COUNT(*) AS count
		 FROM invoice_items it
		 JOIN invoices i ON i.id = it.invoice_id
		 WHERE i.created_at >= ? AND i.created_at < ? AND i.status <> ?
		 GROUP BY it.category
		 ORDER BY amount DESC`,
		from, to, invoicedomain.InvoiceStatusCancelled,
	).Scan(&report.ByCategory).Error; err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	return report, nil
}

// MonthlyTrend buckets collected payments by calendar month in the
// reporting timezone over a look-back window ending at the current
// month, zero-filling months with no activity. Bucketing happens in Go
// so the month boundary logic is identical on every dialect.
func (s *Service) MonthlyTrend(ctx context.Context, months int) ([]analyticsdomain.MonthlyRevenue, error) {
	if months <= 0 {
		months = defaultTrendWindowMonth
	}
	if months > maxTrendWindowMonths {
		months = maxTrendWindowMonths
	}

	now := s.clock.Now().In(s.loc)
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -(months - 1), 0)
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0)

	var rows []struct {
		Amount    int64
		CreatedAt time.Time
	}
	err := s.db.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("created_at >= ? AND created_at < ?", windowStart, windowEnd).
		Select("amount, created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	trend := make([]analyticsdomain.MonthlyRevenue, months)
	for i := range trend {
		month := windowStart.AddDate(0, i, 0)
		trend[i] = analyticsdomain.MonthlyRevenue{Year: month.Year(), Month: month.Month()}
	}
	for _, row := range rows {
		at := row.CreatedAt.In(s.loc)
		idx := (at.Year()-windowStart.Year())*12 + int(at.Month()) - int(windowStart.Month())
		if idx < 0 || idx >= months {
			continue
		}
		trend[idx].Total += row.Amount
	}
	return trend, nil
}

// Forecast fits an ordinary least-squares line over the last twelve
// monthly totals and projects the next three months, floored at zero.
func (s *Service) Forecast(ctx context.Context) (analyticsdomain.Forecast, error) {
	history, err := s.MonthlyTrend(ctx, forecastHistoryMonths)
	if err != nil {
		return analyticsdomain.Forecast{}, err
	}

	ys := make([]int64, len(history))
	for i, m := range history {
		ys[i] = m.Total
	}
	slope, intercept := olsFit(ys)

	forecast := analyticsdomain.Forecast{
		Slope:     slope,
		Intercept: intercept,
		History:   history,
	}

	now := s.clock.Now().In(s.loc)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	n := len(history)
	for i := 1; i <= forecastHorizonMonths; i++ {
		projected := slope*float64(n+i-1) + intercept
		amount := int64(math.Round(projected))
		if amount < 0 {
			amount = 0
		}
		month := currentMonth.AddDate(0, i, 0)
		forecast.Projections = append(forecast.Projections, analyticsdomain.Projection{
			Year:   month.Year(),
			Month:  month.Month(),
			Amount: amount,
		})
	}
	return forecast, nil
}

// ARAging classifies every unresolved invoice balance by elapsed days
// since issuance.
func (s *Service) ARAging(ctx context.Context) (analyticsdomain.ARAgingReport, error) {
	asOf := s.clock.Now()

	var rows []struct {
		Outstanding int64
		CreatedAt   time.Time
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT i.total_amount - COALESCE(SUM(p.amount), 0) AS outstanding, i.created_at
		 FROM invoices i
		 LEFT JOIN payments p ON p.invoice_id = i.id
		 WHERE i.status IN (?, ?, ?)
		 GROUP BY i.id, i.total_amount, i.created_at`,
		invoicedomain.InvoiceStatusPending,
		invoicedomain.InvoiceStatusPartial,
		invoicedomain.InvoiceStatusOverdue,
	).Scan(&rows).Error
	if err != nil {
		return analyticsdomain.ARAgingReport{}, err
	}

	report := analyticsdomain.ARAgingReport{
		AsOf: asOf,
		Buckets: []analyticsdomain.AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: 30},
			{Label: "31-60", MinDays: 31, MaxDays: 60},
			{Label: "61-90", MinDays: 61, MaxDays: 90},
			{Label: "91-120", MinDays: 91, MaxDays: 120},
			{Label: "121+", MinDays: 121, MaxDays: -1},
		},
	}

	for _, row := range rows {
		if row.Outstanding <= 0 {
			continue
		}
		ageDays := int(asOf.Sub(row.CreatedAt).Hours() / 24)
		if ageDays < 0 {
			ageDays = 0
		}
		for i := range report.Buckets {
			b := &report.Buckets[i]
			if ageDays < b.MinDays {
				continue
			}
			if b.MaxDays >= 0 && ageDays > b.MaxDays {
				continue
			}
			b.Outstanding += row.Outstanding
			b.InvoiceCount++
			break
		}
		report.TotalOutstanding += row.Outstanding
	}
	return report, nil
}

// ProfitAndLoss nets collected revenue against expenses incurred over
// the range.
func (s *Service) ProfitAndLoss(ctx context.Context, req analyticsdomain.RangeRequest) (analyticsdomain.ProfitAndLoss, error) {
	from, to, err := s.resolveRange(req)
	if err != nil {
		return analyticsdomain.ProfitAndLoss{}, err
	}

	pnl := analyticsdomain.ProfitAndLoss{From: from, To: to}
	db := s.db.WithContext(ctx)

	if err := db.Model(&paymentdomain.Payment{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&pnl.Revenue).Error; err != nil {
		return analyticsdomain.ProfitAndLoss{}, err
	}

	if err := db.Raw(
		`SELECT c.name AS key, COALESCE(SUM(e.amount), 0) AS amount, COUNT(*) AS count
		 FROM expenses e
		 JOIN expense_categories c ON c.id = e.category_id
		 WHERE e.incurred_at >= ? AND e.incurred_at < ?
		 GROUP BY c.name
		 ORDER BY amount DESC`,
		from, to,
	).Scan(&pnl.ExpensesByCategory).Error; err != nil {
		return analyticsdomain.ProfitAndLoss{}, err
	}

	for _, row := range pnl.ExpensesByCategory {
		pnl.Expenses += row.Amount
	}
	pnl.Net = pnl.Revenue - pnl.Expenses
	return pnl, nil
}

// resolveRange turns an inclusive calendar-date range into a half-open
// instant range in the reporting timezone. Defaults are the first of
// the current month through now.
func (s *Service) resolveRange(req analyticsdomain.RangeRequest) (time.Time, time.Time, error) {
	now := s.clock.Now().In(s.loc)

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	if req.From != "" {
		parsed, err := time.ParseInLocation(closingdomain.DateLayout, req.From, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, analyticsdomain.ErrInvalidDateRange
		}
		from = parsed
	}

	to := now
	if req.To != "" {
		parsed, err := time.ParseInLocation(closingdomain.DateLayout, req.To, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, analyticsdomain.ErrInvalidDateRange
		}
		to = parsed.AddDate(0, 0, 1)
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, analyticsdomain.ErrInvalidDateRange
	}
	return from, to, nil
}
