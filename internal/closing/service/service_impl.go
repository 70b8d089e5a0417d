// Package service implements daily cash reconciliation.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	"github.com/clinicore/ledger/internal/clock"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/observability/metrics"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceParam declares dependencies for the closing service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Location *time.Location
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service implements closingdomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location

	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewService builds the closing service.
func NewService(p ServiceParam) closingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("closing.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Location,

		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// GetDailySummary aggregates one day's takings in the reporting
// timezone and attaches the closing row if one exists.
func (s *Service) GetDailySummary(ctx context.Context, date string) (closingdomain.DailySummary, error) {
	dayStart, dayEnd, err := s.dayRange(date)
	if err != nil {
		return closingdomain.DailySummary{}, err
	}

	summary := closingdomain.DailySummary{
		Date:   date,
		Status: closingdomain.ClosingStatusOpen,
	}

	db := s.db.WithContext(ctx)
	summary.Expected, summary.PaymentCount, err = s.paymentTotals(db, dayStart, dayEnd)
	if err != nil {
		return closingdomain.DailySummary{}, err
	}
	summary.ExpectedTotal = summary.Expected.Total()

	if err := db.Model(&invoicedomain.Invoice{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&summary.InvoiceCount).Error; err != nil {
		return closingdomain.DailySummary{}, err
	}

	if err := db.Model(&invoicedomain.Invoice{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Where("consultation_id IS NOT NULL").
		Distinct("consultation_id").
		Count(&summary.ConsultationCount).Error; err != nil {
		return closingdomain.DailySummary{}, err
	}

	if err := db.Model(&invoicedomain.Invoice{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Distinct("patient_id").
		Count(&summary.PatientsSeen).Error; err != nil {
		return closingdomain.DailySummary{}, err
	}

	if err := db.Model(&expensedomain.Expense{}).
		Where("incurred_at >= ? AND incurred_at < ?", dayStart, dayEnd).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&summary.ExpenseTotal).Error; err != nil {
		return closingdomain.DailySummary{}, err
	}

	var closing closingdomain.DailyClosing
	err = db.First(&closing, "closing_date = ?", date).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		// no row yet, day is implicitly OPEN
	case err != nil:
		return closingdomain.DailySummary{}, err
	default:
		summary.Status = closing.Status
		summary.Closing = &closing
	}

	return summary, nil
}

// CloseDay finalizes one calendar day. The insert-or-update is keyed by
// date with a guard on OPEN status, so a retry or a concurrent caller
// hitting an already-closed day affects zero rows and gets Conflict.
func (s *Service) CloseDay(ctx context.Context, req closingdomain.CloseDayRequest) (closingdomain.DailyClosing, error) {
	if req.ClosedBy == "" {
		return closingdomain.DailyClosing{}, closingdomain.ErrMissingCloser
	}
	if req.Actual.Cash < 0 || req.Actual.Card < 0 ||
		req.Actual.Insurance < 0 || req.Actual.BankTransfer < 0 {
		return closingdomain.DailyClosing{}, closingdomain.ErrNegativeActual
	}

	dayStart, dayEnd, err := s.dayRange(req.Date)
	if err != nil {
		return closingdomain.DailyClosing{}, err
	}

	now := s.clock.Now()
	var closing closingdomain.DailyClosing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expected, paymentCount, err := s.paymentTotals(tx, dayStart, dayEnd)
		if err != nil {
			return err
		}

		var invoiceCount, consultationCount, patientsSeen int64
		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Count(&invoiceCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Where("consultation_id IS NOT NULL").
			Distinct("consultation_id").
			Count(&consultationCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Distinct("patient_id").
			Count(&patientsSeen).Error; err != nil {
			return err
		}

		row := closingdomain.DailyClosing{
			ID:          s.genID.Generate(),
			ClosingDate: req.Date,
			Status:      closingdomain.ClosingStatusClosed,

			ExpectedCash:         expected.Cash,
			ExpectedCard:         expected.Card,
			ExpectedInsurance:    expected.Insurance,
			ExpectedBankTransfer: expected.BankTransfer,

			ActualCash:         req.Actual.Cash,
			ActualCard:         req.Actual.Card,
			ActualInsurance:    req.Actual.Insurance,
			ActualBankTransfer: req.Actual.BankTransfer,

			VarianceCash:  req.Actual.Cash - expected.Cash,
			VarianceTotal: req.Actual.Total() - expected.Total(),

			InvoiceCount:      invoiceCount,
			PaymentCount:      paymentCount,
			ConsultationCount: consultationCount,
			PatientsSeen:      patientsSeen,

			ClosedBy:  req.ClosedBy,
			ClosedAt:  &now,
			Notes:     req.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}

		inserted, err := upsertClosing(tx, row)
		if err != nil {
			return err
		}
		if !inserted {
			return closingdomain.ErrAlreadyClosed
		}

		return tx.First(&closing, "closing_date = ?", req.Date).Error
	})
	if err != nil {
		return closingdomain.DailyClosing{}, err
	}

	s.emitAudit(ctx, closing)
	if s.metrics != nil {
		s.metrics.RecordDailyClosing(ctx)
	}
	return closing, nil
}

// upsertClosing inserts the CLOSED row or takes over an existing OPEN
// row for the same date. An already-CLOSED row matches the conflict
// target but fails the status guard, affecting zero rows.
func upsertClosing(tx *gorm.DB, row closingdomain.DailyClosing) (bool, error) {
	result := tx.Exec(
		`INSERT INTO daily_closings (
			id, closing_date, status,
			expected_cash, expected_card, expected_insurance, expected_bank_transfer,
			actual_cash, actual_card, actual_insurance, actual_bank_transfer,
			variance_cash, variance_total,
			invoice_count, payment_count, consultation_count, patients_seen,
			closed_by, closed_at, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (closing_date) DO UPDATE SET
			status = excluded.status,
			expected_cash = excluded.expected_cash,
			expected_card = excluded.expected_card,
			expected_insurance = excluded.expected_insurance,
			expected_bank_transfer = excluded.expected_bank_transfer,
			actual_cash = excluded.actual_cash,
			actual_card = excluded.actual_card,
			actual_insurance = excluded.actual_insurance,
			actual_bank_transfer = excluded.actual_bank_transfer,
			variance_cash = excluded.variance_cash,
			variance_total = excluded.variance_total,
			invoice_count = excluded.invoice_count,
			payment_count = excluded.payment_count,
			consultation_count = excluded.consultation_count,
			patients_seen = excluded.patients_seen,
			closed_by = excluded.closed_by,
			closed_at = excluded.closed_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at
		WHERE daily_closings.status = ?`,
		row.ID, row.ClosingDate, row.Status,
		row.ExpectedCash, row.ExpectedCard, row.ExpectedInsurance, row.ExpectedBankTransfer,
		row.ActualCash, row.ActualCard, row.ActualInsurance, row.ActualBankTransfer,
		row.VarianceCash, row.VarianceTotal,
		row.InvoiceCount, row.PaymentCount, row.ConsultationCount, row.PatientsSeen,
		row.ClosedBy, row.ClosedAt, row.Notes, row.CreatedAt, row.UpdatedAt,
		closingdomain.ClosingStatusOpen,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) paymentTotals(tx *gorm.DB, from, to time.Time) (closingdomain.MethodTotals, int64, error) {
	var rows []struct {
		Method paymentdomain.Method
		Total  int64
		Count  int64
	}
	err := tx.Model(&paymentdomain.Payment{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("method, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("method").
		Scan(&rows).Error
	if err != nil {
		return closingdomain.MethodTotals{}, 0, err
	}

	var totals closingdomain.MethodTotals
	var count int64
	for _, r := range rows {
		totals.Add(r.Method, r.Total)
		count += r.Count
	}
	return totals, count, nil
}

func (s *Service) dayRange(date string) (time.Time, time.Time, error) {
	dayStart, err := time.ParseInLocation(closingdomain.DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, closingdomain.ErrInvalidDate
	}
	return dayStart, dayStart.AddDate(0, 0, 1), nil
}

func (s *Service) emitAudit(ctx context.Context, closing closingdomain.DailyClosing) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDayClosed,
		EntityType: "daily_closing",
		EntityID:   closing.ID.String(),
		ActorID:    closing.ClosedBy,
		Metadata: map[string]any{
			"closing_date":   closing.ClosingDate,
			"variance_cash":  closing.VarianceCash,
			"variance_total": closing.VarianceTotal,
		},
	})
}
