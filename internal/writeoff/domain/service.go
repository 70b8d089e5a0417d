package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/invoice/format"
)

// CreateWriteOffRequest records a non-payment balance reduction.
type CreateWriteOffRequest struct {
	InvoiceID   snowflake.ID `json:"invoice_id"`
	Amount      int64        `json:"amount"`
	Reason      Reason       `json:"reason"`
	Description string       `json:"description,omitempty"`
	ApprovedBy  string       `json:"approved_by"`
}

// Service records and lists write-offs.
type Service interface {
	Create(ctx context.Context, req CreateWriteOffRequest) (WriteOff, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]WriteOff, error)
}

var (
	ErrAmountNotPositive = errors.New("write_off_amount_must_be_positive")
	ErrInvalidReason     = errors.New("invalid_write_off_reason")
	ErrMissingApprover   = errors.New("approved_by_is_required")
	ErrInvoiceClosed     = errors.New("invoice_is_paid_or_cancelled")
)

// ExcessWriteOffError rejects a write-off larger than the remaining
// balance. Remaining is in minor units.
type ExcessWriteOffError struct {
	Remaining int64
}

func (e *ExcessWriteOffError) Error() string {
	return fmt.Sprintf("write-off exceeds remaining balance of %s", format.Amount(e.Remaining))
}
