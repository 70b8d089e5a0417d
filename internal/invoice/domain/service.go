package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/pkg/db/pagination"
)

// LineItemInput describes one billed line on a new invoice.
type LineItemInput struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Quantity    int64  `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}

// CreateInvoiceRequest issues a new invoice.
type CreateInvoiceRequest struct {
	PatientID      snowflake.ID    `json:"patient_id"`
	ConsultationID *snowflake.ID   `json:"consultation_id,omitempty"`
	ProviderID     *snowflake.ID   `json:"provider_id,omitempty"`
	Items          []LineItemInput `json:"items"`
	Tax            int64           `json:"tax"`
	Discount       int64           `json:"discount"`
	DueAt          *time.Time      `json:"due_at,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// ListInvoiceRequest filters invoices by status, patient, and date range.
type ListInvoiceRequest struct {
	pagination.Pagination

	Status    InvoiceStatus `form:"status"`
	PatientID *snowflake.ID `form:"patient_id"`
	From      *time.Time    `form:"from" time_format:"2006-01-02"`
	To        *time.Time    `form:"to" time_format:"2006-01-02"`
}

// ListInvoiceResponse is a page of invoices.
type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Service manages invoice issuance and retrieval.
type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Cancel(ctx context.Context, id snowflake.ID) (Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

var (
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrPatientRequired  = errors.New("patient_reference_is_required")
	ErrNoLineItems      = errors.New("invoice_requires_line_items")
	ErrInvalidLineItem  = errors.New("line_item_quantity_and_unit_amount_must_be_positive")
	ErrNegativeTotal    = errors.New("invoice_total_must_not_be_negative")
	ErrInvoiceNotOpen   = errors.New("invoice_is_not_open")
	ErrInvalidStatus    = errors.New("invalid_invoice_status")
	ErrDuplicateNumber  = errors.New("invoice_number_already_exists")
	ErrInvalidDateRange = errors.New("invalid_date_range")
)
