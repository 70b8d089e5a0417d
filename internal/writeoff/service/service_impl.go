// Package service implements the write-off handler.
package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/observability/metrics"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/clinicore/ledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceParam declares dependencies for the write-off service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service implements writeoffdomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewService builds the write-off service.
func NewService(p ServiceParam) writeoffdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("writeoff.service"),
		genID: p.GenID,
		clock: p.Clock,

		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Create inserts a write-off and settles the invoice status in one
// transaction. A write-off can complete an invoice (status PAID when
// payments plus write-offs cover the total) but never creates PARTIAL
// on its own.
func (s *Service) Create(ctx context.Context, req writeoffdomain.CreateWriteOffRequest) (writeoffdomain.WriteOff, error) {
	if req.Amount <= 0 {
		return writeoffdomain.WriteOff{}, writeoffdomain.ErrAmountNotPositive
	}
	if !req.Reason.Valid() {
		return writeoffdomain.WriteOff{}, writeoffdomain.ErrInvalidReason
	}
	if req.ApprovedBy == "" {
		return writeoffdomain.WriteOff{}, writeoffdomain.ErrMissingApprover
	}

	writeOff := writeoffdomain.WriteOff{
		ID:          s.genID.Generate(),
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		Description: req.Description,
		ApprovedBy:  req.ApprovedBy,
		CreatedAt:   s.clock.Now(),
	}

	var newStatus invoicedomain.InvoiceStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoicedomain.Invoice
		if err := db.LockForUpdate(tx).First(&invoice, "id = ?", req.InvoiceID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status == invoicedomain.InvoiceStatusPaid ||
			invoice.Status == invoicedomain.InvoiceStatusCancelled {
			return writeoffdomain.ErrInvoiceClosed
		}

		paid, err := sumAmounts(tx, &paymentdomain.Payment{}, invoice.ID)
		if err != nil {
			return err
		}
		writtenBefore, err := sumAmounts(tx, &writeoffdomain.WriteOff{}, invoice.ID)
		if err != nil {
			return err
		}

		remaining := invoice.TotalAmount - paid - writtenBefore
		if req.Amount > remaining {
			return &writeoffdomain.ExcessWriteOffError{Remaining: remaining}
		}

		if err := tx.Create(&writeOff).Error; err != nil {
			return err
		}

		newStatus = invoicedomain.DeriveStatus(invoice.Status, invoice.TotalAmount, paid, writtenBefore+req.Amount)
		if newStatus == invoice.Status {
			return nil
		}
		return tx.Model(&invoicedomain.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"status":     newStatus,
				"updated_at": writeOff.CreatedAt,
			}).Error
	})
	if err != nil {
		return writeoffdomain.WriteOff{}, err
	}

	s.emitAudit(ctx, writeOff, newStatus)
	if s.metrics != nil {
		s.metrics.RecordWriteOff(ctx, string(req.Reason))
	}
	return writeOff, nil
}

// ListByInvoice returns an invoice's write-offs oldest first.
func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]writeoffdomain.WriteOff, error) {
	var writeOffs []writeoffdomain.WriteOff
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&writeOffs).Error
	if err != nil {
		return nil, err
	}
	return writeOffs, nil
}

func sumAmounts(tx *gorm.DB, model any, invoiceID snowflake.ID) (int64, error) {
	var total int64
	err := tx.Model(model).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) emitAudit(ctx context.Context, writeOff writeoffdomain.WriteOff, status invoicedomain.InvoiceStatus) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionWriteOffRecorded,
		EntityType: "write_off",
		EntityID:   writeOff.ID.String(),
		ActorID:    writeOff.ApprovedBy,
		Metadata: map[string]any{
			"invoice_id":     writeOff.InvoiceID.String(),
			"amount":         writeOff.Amount,
			"reason":         string(writeOff.Reason),
			"invoice_status": string(status),
		},
	})
}
