package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/invoice/format"
)

// RecordPaymentRequest records money received against an invoice.
type RecordPaymentRequest struct {
	InvoiceID  snowflake.ID `json:"invoice_id"`
	Amount     int64        `json:"amount"`
	Method     Method       `json:"method"`
	Reference  string       `json:"reference,omitempty"`
	ReceivedBy string       `json:"received_by"`
}

// Service records and lists payments.
type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}

var (
	ErrAmountNotPositive = errors.New("payment_amount_must_be_positive")
	ErrInvalidMethod     = errors.New("invalid_payment_method")
	ErrMissingReceiver   = errors.New("received_by_is_required")
	ErrInvoiceClosed     = errors.New("invoice_is_paid_or_cancelled")
)

// OverpaymentError rejects a payment that would exceed the invoice
// total. Remaining is the balance still payable, in minor units.
type OverpaymentError struct {
	Remaining int64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment exceeds remaining balance of %s", format.Amount(e.Remaining))
}
