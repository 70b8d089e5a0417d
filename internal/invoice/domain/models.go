// Package domain contains persistence models for clinic invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known lifecycle state.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice represents a billable record for patient care.
// All monetary fields are integer minor units.
type Invoice struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Number         string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"number"`
	PatientID      snowflake.ID  `gorm:"not null;index" json:"patient_id"`
	ConsultationID *snowflake.ID `gorm:"index" json:"consultation_id,omitempty"`
	ProviderID     *snowflake.ID `gorm:"index" json:"provider_id,omitempty"`
	Subtotal       int64         `gorm:"not null;default:0" json:"subtotal"`
	Tax            int64         `gorm:"not null;default:0" json:"tax"`
	Discount       int64         `gorm:"not null;default:0" json:"discount"`
	TotalAmount    int64         `gorm:"not null;default:0" json:"total_amount"`
	Status         InvoiceStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	DueAt          *time.Time    `gorm:"" json:"due_at,omitempty"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem represents a line on an invoice. Immutable once created.
type InvoiceItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Category    string       `gorm:"type:text;not null;index" json:"category"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	UnitAmount  int64        `gorm:"not null" json:"unit_amount"`
	Amount      int64        `gorm:"not null" json:"amount"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
