// Package service implements the legacy data importer.
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
	"github.com/clinicore/ledger/internal/invoice/format"
	legacydomain "github.com/clinicore/ledger/internal/legacyimport/domain"
	"github.com/clinicore/ledger/internal/observability/metrics"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/clinicore/ledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// walkInRecordNo is the reserved natural key anchoring every
	// synthetic backfill invoice to one patient row.
	walkInRecordNo  = "LEGACY-WALKIN"
	walkInName      = "Walk-in (legacy)"
	importActor     = "legacy-import"
	legacyCategory  = "LEGACY"
	monthLayout     = "2006-01"
	legacyLineLabel = "Imported daily revenue"
)

// ServiceParam declares dependencies for the legacy importer.
type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Location   *time.Location
	ExpenseSvc expensedomain.Service
	AuditSvc   auditdomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

// Service implements legacydomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location

	expenseSvc expensedomain.Service
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
}

// NewService builds the legacy importer.
func NewService(p ServiceParam) legacydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("legacyimport.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Location,

		expenseSvc: p.ExpenseSvc,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

// Import backfills historical days and monthly expenses. Every day is
// one transaction: the synthetic invoice, its payment, and the CLOSED
// closing row all land together or not at all. Days already present
// are skipped, so retrying a batch is safe.
func (s *Service) Import(ctx context.Context, req legacydomain.ImportRequest) (legacydomain.ImportResult, error) {
	if len(req.Days) == 0 && len(req.Expenses) == 0 {
		return legacydomain.ImportResult{}, legacydomain.ErrEmptyBatch
	}

	var result legacydomain.ImportResult

	var patientID snowflake.ID
	if len(req.Days) > 0 {
		var err error
		patientID, err = s.ensureWalkInPatient(ctx)
		if err != nil {
			return legacydomain.ImportResult{}, err
		}
	}

	for _, day := range req.Days {
		imported, err := s.importDay(ctx, patientID, day)
		if err != nil {
			return result, err
		}
		if imported {
			result.DaysImported++
			if s.metrics != nil {
				s.metrics.RecordLegacyDay(ctx)
			}
		} else {
			result.DaysSkipped++
		}
	}

	for _, exp := range req.Expenses {
		if err := s.importExpense(ctx, exp); err != nil {
			return result, err
		}
		result.ExpensesWritten++
	}

	s.log.Info("legacy import finished",
		zap.Int("days_imported", result.DaysImported),
		zap.Int("days_skipped", result.DaysSkipped),
		zap.Int("expenses_written", result.ExpensesWritten),
	)
	return result, nil
}

// ensureWalkInPatient gets or creates the reserved walk-in patient.
// The insert races through the unique index on medical_record_no, so
// concurrent importers converge on one row without a read-then-write
// window.
func (s *Service) ensureWalkInPatient(ctx context.Context) (snowflake.ID, error) {
	newID := s.genID.Generate()
	if err := s.db.WithContext(ctx).Exec(
		`INSERT INTO patients (id, display_name, medical_record_no, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (medical_record_no) DO NOTHING`,
		newID,
		walkInName,
		walkInRecordNo,
		s.clock.Now(),
	).Error; err != nil {
		return 0, err
	}

	var patientID snowflake.ID
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id FROM patients WHERE medical_record_no = ?`,
		walkInRecordNo,
	).Scan(&patientID).Error; err != nil {
		return 0, err
	}
	if patientID == 0 {
		return 0, legacydomain.ErrWalkInPatient
	}
	return patientID, nil
}

func (s *Service) importDay(ctx context.Context, patientID snowflake.ID, day legacydomain.LegacyDay) (bool, error) {
	if day.Date == "" || day.Amount <= 0 {
		return false, legacydomain.ErrInvalidDay
	}
	dayStart, err := time.ParseInLocation(closingdomain.DateLayout, day.Date, s.loc)
	if err != nil {
		return false, legacydomain.ErrInvalidDay
	}

	number := format.LegacyNumber(dayStart)
	now := s.clock.Now()

	var invoiceID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var closingCount int64
		if err := tx.Model(&closingdomain.DailyClosing{}).
			Where("closing_date = ?", day.Date).
			Count(&closingCount).Error; err != nil {
			return err
		}
		if closingCount > 0 {
			return nil
		}

		var invoiceCount int64
		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("number = ?", number).
			Count(&invoiceCount).Error; err != nil {
			return err
		}
		if invoiceCount > 0 {
			return nil
		}

		invoiceID = s.genID.Generate()
		invoice := invoicedomain.Invoice{
			ID:          invoiceID,
			Number:      number,
			PatientID:   patientID,
			Subtotal:    day.Amount,
			TotalAmount: day.Amount,
			Status:      invoicedomain.InvoiceStatusPaid,
			Notes:       day.Notes,
			CreatedAt:   dayStart,
			UpdatedAt:   now,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				invoiceID = 0
				return nil
			}
			return err
		}

		item := invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoiceID,
			Description: legacyLineLabel,
			Category:    legacyCategory,
			Quantity:    1,
			UnitAmount:  day.Amount,
			Amount:      day.Amount,
			CreatedAt:   dayStart,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		payment := paymentdomain.Payment{
			ID:         s.genID.Generate(),
			InvoiceID:  invoiceID,
			Amount:     day.Amount,
			Method:     paymentdomain.MethodCash,
			ReceivedBy: importActor,
			CreatedAt:  dayStart,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		closedAt := dayStart.AddDate(0, 0, 1)
		closing := closingdomain.DailyClosing{
			ID:          s.genID.Generate(),
			ClosingDate: day.Date,
			Status:      closingdomain.ClosingStatusClosed,

			ExpectedCash: day.Amount,
			ActualCash:   day.Amount,

			InvoiceCount: 1,
			PaymentCount: 1,
			PatientsSeen: day.PatientCount,

			ClosedBy:  importActor,
			ClosedAt:  &closedAt,
			Notes:     day.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&closing).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				invoiceID = 0
				return gorm.ErrDuplicatedKey
			}
			return err
		}
		return nil
	})
	if err == gorm.ErrDuplicatedKey {
		// lost a race with a concurrent import of the same day
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if invoiceID == 0 {
		return false, nil
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionLegacyDayImported,
			EntityType: "invoice",
			EntityID:   invoiceID.String(),
			ActorID:    importActor,
			Metadata: map[string]any{
				"date":   day.Date,
				"number": number,
				"amount": day.Amount,
			},
		})
	}
	return true, nil
}

func (s *Service) importExpense(ctx context.Context, exp legacydomain.LegacyExpense) error {
	if exp.CategoryName == "" || exp.Description == "" {
		return legacydomain.ErrInvalidExpense
	}
	month, err := time.ParseInLocation(monthLayout, exp.Month, s.loc)
	if err != nil {
		return legacydomain.ErrInvalidMonth
	}

	categoryID, err := s.ensureCategory(ctx, exp.CategoryName)
	if err != nil {
		return err
	}

	_, err = s.expenseSvc.UpsertMonthly(ctx, expensedomain.UpsertMonthlyRequest{
		CategoryID:  categoryID,
		Description: exp.Description,
		Amount:      exp.Amount,
		Month:       month,
	})
	return err
}

// ensureCategory gets or creates an expense category by name, with the
// same insert-through-the-index shape as ensureWalkInPatient.
func (s *Service) ensureCategory(ctx context.Context, name string) (snowflake.ID, error) {
	newID := s.genID.Generate()
	if err := s.db.WithContext(ctx).Exec(
		`INSERT INTO expense_categories (id, name, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		newID,
		name,
		s.clock.Now(),
	).Error; err != nil {
		return 0, err
	}

	var categoryID snowflake.ID
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id FROM expense_categories WHERE name = ?`,
		name,
	).Scan(&categoryID).Error; err != nil {
		return 0, err
	}
	if categoryID == 0 {
		return 0, expensedomain.ErrCategoryNotFound
	}
	return categoryID, nil
}
