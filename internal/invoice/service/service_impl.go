// Package service implements invoice issuance and retrieval.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/invoice/format"
	"github.com/clinicore/ledger/internal/observability/metrics"
	"github.com/clinicore/ledger/pkg/db"
	"github.com/clinicore/ledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceParam declares dependencies for the invoice service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service implements invoicedomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewService builds the invoice service.
func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Create issues a new invoice with the next sequential number. The
// number is derived and the rows inserted inside one transaction so
// concurrent issuers cannot interleave; the unique index on number is
// the backstop if they still do.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.PatientID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrPatientRequired
	}
	if len(req.Items) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrNoLineItems
	}
	if req.Tax < 0 || req.Discount < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrNegativeTotal
	}

	var subtotal int64
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitAmount <= 0 {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidLineItem
		}
		subtotal += item.Quantity * item.UnitAmount
	}

	total := subtotal + req.Tax - req.Discount
	if total < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrNegativeTotal
	}

	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		PatientID:      req.PatientID,
		ConsultationID: req.ConsultationID,
		ProviderID:     req.ProviderID,
		Subtotal:       subtotal,
		Tax:            req.Tax,
		Discount:       req.Discount,
		TotalAmount:    total,
		Status:         invoicedomain.InvoiceStatusPending,
		DueAt:          req.DueAt,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.nextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		invoice.Number = number

		if err := tx.Create(&invoice).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateNumber
			}
			return err
		}

		for _, item := range req.Items {
			row := invoicedomain.InvoiceItem{
				ID:          s.genID.Generate(),
				InvoiceID:   invoice.ID,
				Description: item.Description,
				Category:    item.Category,
				Quantity:    item.Quantity,
				UnitAmount:  item.UnitAmount,
				Amount:      item.Quantity * item.UnitAmount,
				CreatedAt:   now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			invoice.Items = append(invoice.Items, row)
		}
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionInvoiceIssued, &invoice, map[string]any{
		"number": invoice.Number,
		"total":  invoice.TotalAmount,
	})
	if s.metrics != nil {
		s.metrics.RecordInvoiceIssued(ctx)
	}
	return invoice, nil
}

// GetByID returns an invoice with its line items.
func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
		}
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

// List returns a page of invoices filtered by status, patient, and
// creation date range, newest first.
func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidDateRange
	}

	query := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.Status != "" {
		if !req.Status.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.PatientID != nil {
		query = query.Where("patient_id = ?", *req.PatientID)
	}
	if req.From != nil {
		query = query.Where("created_at >= ?", *req.From)
	}
	if req.To != nil {
		query = query.Where("created_at < ?", req.To.AddDate(0, 0, 1))
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		query = query.Where("(created_at, id) < (?, ?)", createdAt, cursor.ID)
	}

	limit := req.Limit()
	var invoices []invoicedomain.Invoice
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&invoices).Error; err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	resp := invoicedomain.ListInvoiceResponse{}
	if len(invoices) > limit {
		invoices = invoices[:limit]
		last := invoices[len(invoices)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		resp.NextPageToken = token
		resp.HasMore = true
	}
	resp.Invoices = invoices
	return resp, nil
}

// Cancel voids a PENDING invoice. Invoices with recorded money against
// them cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := db.LockForUpdate(tx).First(&invoice, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status != invoicedomain.InvoiceStatusPending &&
			invoice.Status != invoicedomain.InvoiceStatusOverdue {
			return invoicedomain.ErrInvoiceNotOpen
		}

		// OVERDUE can still carry partial payments; money on the
		// invoice makes it uncancellable.
		var moneyCount int64
		err := tx.Raw(
			`SELECT (SELECT COUNT(*) FROM payments WHERE invoice_id = ?)
			      + (SELECT COUNT(*) FROM write_offs WHERE invoice_id = ?)`,
			invoice.ID, invoice.ID,
		).Scan(&moneyCount).Error
		if err != nil {
			return err
		}
		if moneyCount > 0 {
			return invoicedomain.ErrInvoiceNotOpen
		}

		invoice.Status = invoicedomain.InvoiceStatusCancelled
		invoice.UpdatedAt = s.clock.Now()
		return tx.Model(&invoicedomain.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"status":     invoice.Status,
				"updated_at": invoice.UpdatedAt,
			}).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionInvoiceCancelled, &invoice, nil)
	return invoice, nil
}

// MarkOverdue flips PENDING and PARTIAL invoices whose due date has
// passed to OVERDUE and returns the number of rows changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status IN ?", []invoicedomain.InvoiceStatus{
			invoicedomain.InvoiceStatusPending,
			invoicedomain.InvoiceStatusPartial,
		}).
		Where("due_at IS NOT NULL AND due_at < ?", asOf).
		Updates(map[string]any{
			"status":     invoicedomain.InvoiceStatusOverdue,
			"updated_at": s.clock.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("marked invoices overdue",
			zap.Int64("count", result.RowsAffected),
			zap.Time("as_of", asOf),
		)
		if s.auditSvc != nil {
			s.auditSvc.Record(ctx, auditdomain.Entry{
				Action:     auditdomain.ActionInvoiceOverdue,
				EntityType: "invoice",
				EntityID:   "batch",
				Metadata: map[string]any{
					"count": result.RowsAffected,
					"as_of": asOf.Format(time.RFC3339),
				},
			})
		}
	}
	return result.RowsAffected, nil
}

// nextInvoiceNumber derives the successor of the highest issued
// sequential number. LEG-prefixed backfill numbers are outside the
// sequence and never considered.
func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	var last string
	err := db.LockForUpdate(tx.WithContext(ctx)).
		Model(&invoicedomain.Invoice{}).
		Where("number LIKE ?", format.NumberPrefix+"%").
		Order("number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}
	return format.NextNumber(last)
}

func (s *Service) emitAudit(ctx context.Context, action auditdomain.Action, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"status": string(invoice.Status),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		EntityType: "invoice",
		EntityID:   invoice.ID.String(),
		Metadata:   metadata,
	})
}
