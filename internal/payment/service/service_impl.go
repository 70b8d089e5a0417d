// Package service implements the payment ledger.
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

// ServiceParam declares dependencies for the payment service.
type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service implements paymentdomain.Service.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewService builds the payment service.
func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,

		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// Record inserts a payment and settles the invoice status in one
// transaction. The invoice row is locked for the duration so a
// concurrent payment cannot defeat the overpayment check.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.Payment, error) {
	if req.Amount <= 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrAmountNotPositive
	}
	if !req.Method.Valid() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
	}
	if req.ReceivedBy == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrMissingReceiver
	}

	payment := paymentdomain.Payment{
		ID:         s.genID.Generate(),
		InvoiceID:  req.InvoiceID,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		ReceivedBy: req.ReceivedBy,
		CreatedAt:  s.clock.Now(),
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
			return paymentdomain.ErrInvoiceClosed
		}

		paidBefore, err := sumPayments(tx, invoice.ID)
		if err != nil {
			return err
		}
		writtenOff, err := sumWriteOffs(tx, invoice.ID)
		if err != nil {
			return err
		}

		// write-offs already resolved part of the balance; a payment
		// may only take what is still outstanding
		remaining := invoice.TotalAmount - paidBefore - writtenOff
		if req.Amount > remaining {
			return &paymentdomain.OverpaymentError{Remaining: remaining}
		}

		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		newStatus = invoicedomain.DeriveStatus(invoice.Status, invoice.TotalAmount, paidBefore+req.Amount, writtenOff)
		if newStatus == invoice.Status {
			return nil
		}
		return tx.Model(&invoicedomain.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"status":     newStatus,
				"updated_at": payment.CreatedAt,
			}).Error
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.emitAudit(ctx, payment, newStatus)
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, string(req.Method))
	}
	return payment, nil
}

// ListByInvoice returns an invoice's payments oldest first.
func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func sumPayments(tx *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var total int64
	err := tx.Model(&paymentdomain.Payment{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func sumWriteOffs(tx *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var total int64
	err := tx.Model(&writeoffdomain.WriteOff{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) emitAudit(ctx context.Context, payment paymentdomain.Payment, status invoicedomain.InvoiceStatus) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionPaymentRecorded,
		EntityType: "payment",
		EntityID:   payment.ID.String(),
		ActorID:    payment.ReceivedBy,
		Metadata: map[string]any{
			"invoice_id":     payment.InvoiceID.String(),
			"amount":         payment.Amount,
			"method":         string(payment.Method),
			"invoice_status": string(status),
		},
	})
}
