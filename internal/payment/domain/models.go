// Package domain contains persistence models for the payment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Method enumerates accepted payment methods.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodInsurance    Method = "INSURANCE"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

// Methods lists every accepted method in reporting order.
var Methods = []Method{MethodCash, MethodCard, MethodInsurance, MethodBankTransfer}

// Valid reports whether m is an accepted method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodInsurance, MethodBankTransfer:
		return true
	}
	return false
}

// Payment is an append-only record of money received against an
// invoice. Amount is in integer minor units.
type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Method     Method       `gorm:"type:text;not null;index" json:"method"`
	Reference  string       `gorm:"type:text" json:"reference,omitempty"`
	ReceivedBy string       `gorm:"type:text;not null" json:"received_by"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
