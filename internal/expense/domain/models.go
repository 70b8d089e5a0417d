// Package domain contains persistence models for the expense ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ExpenseCategory groups expenses for profit-and-loss reporting.
type ExpenseCategory struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_expense_categories_name" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ExpenseCategory) TableName() string { return "expense_categories" }

// Expense is a cost entry. Amount is in integer minor units.
type Expense struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CategoryID  snowflake.ID `gorm:"not null;index" json:"category_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Amount      int64        `gorm:"not null" json:"amount"`
	IncurredAt  time.Time    `gorm:"not null;index" json:"incurred_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }
