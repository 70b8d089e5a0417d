// Package domain contains persistence models for daily cash
// reconciliation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ClosingStatus represents the per-date reconciliation state.
type ClosingStatus string

const (
	ClosingStatusOpen   ClosingStatus = "OPEN"
	ClosingStatusClosed ClosingStatus = "CLOSED"
)

// DateLayout is the canonical calendar-date key format.
const DateLayout = "2006-01-02"

// DailyClosing reconciles one calendar day of takings. Exactly one row
// exists per date; once CLOSED it is immutable. All monetary fields
// are integer minor units.
type DailyClosing struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	ClosingDate string        `gorm:"type:text;not null;uniqueIndex:ux_daily_closings_date" json:"closing_date"`
	Status      ClosingStatus `gorm:"type:text;not null;default:'OPEN'" json:"status"`

	ExpectedCash         int64 `gorm:"not null;default:0" json:"expected_cash"`
	ExpectedCard         int64 `gorm:"not null;default:0" json:"expected_card"`
	ExpectedInsurance    int64 `gorm:"not null;default:0" json:"expected_insurance"`
	ExpectedBankTransfer int64 `gorm:"not null;default:0" json:"expected_bank_transfer"`

	ActualCash         int64 `gorm:"not null;default:0" json:"actual_cash"`
	ActualCard         int64 `gorm:"not null;default:0" json:"actual_card"`
	ActualInsurance    int64 `gorm:"not null;default:0" json:"actual_insurance"`
	ActualBankTransfer int64 `gorm:"not null;default:0" json:"actual_bank_transfer"`

	VarianceCash  int64 `gorm:"not null;default:0" json:"variance_cash"`
	VarianceTotal int64 `gorm:"not null;default:0" json:"variance_total"`

	InvoiceCount      int64 `gorm:"not null;default:0" json:"invoice_count"`
	PaymentCount      int64 `gorm:"not null;default:0" json:"payment_count"`
	ConsultationCount int64 `gorm:"not null;default:0" json:"consultation_count"`
	PatientsSeen      int64 `gorm:"not null;default:0" json:"patients_seen"`

	ClosedBy  string     `gorm:"type:text" json:"closed_by,omitempty"`
	ClosedAt  *time.Time `gorm:"" json:"closed_at,omitempty"`
	Notes     string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DailyClosing) TableName() string { return "daily_closings" }
