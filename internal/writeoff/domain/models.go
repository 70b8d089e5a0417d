// Package domain contains persistence models for balance write-offs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reason enumerates accepted write-off reasons.
type Reason string

const (
	ReasonCourtesy            Reason = "COURTESY"
	ReasonBadDebt             Reason = "BAD_DEBT"
	ReasonInsuranceAdjustment Reason = "INSURANCE_ADJUSTMENT"
	ReasonStaffDiscount       Reason = "STAFF_DISCOUNT"
	ReasonCorrection          Reason = "CORRECTION"
	ReasonOther               Reason = "OTHER"
)

// Valid reports whether r is an accepted reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonCourtesy, ReasonBadDebt, ReasonInsuranceAdjustment,
		ReasonStaffDiscount, ReasonCorrection, ReasonOther:
		return true
	}
	return false
}

// WriteOff is an append-only reduction of an invoice's outstanding
// balance not backed by a payment. Amount is in integer minor units.
type WriteOff struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount      int64        `gorm:"not null" json:"amount"`
	Reason      Reason       `gorm:"type:text;not null" json:"reason"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	ApprovedBy  string       `gorm:"type:text;not null" json:"approved_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (WriteOff) TableName() string { return "write_offs" }
