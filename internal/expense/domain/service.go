package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreateCategoryRequest creates an expense category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// CreateExpenseRequest records a cost entry.
type CreateExpenseRequest struct {
	CategoryID  snowflake.ID `json:"category_id"`
	Description string       `json:"description"`
	Amount      int64        `json:"amount"`
	IncurredAt  time.Time    `json:"incurred_at"`
}

// UpsertMonthlyRequest records or corrects a recurring monthly expense.
// The row is matched by (category, month, description); a match with a
// different amount is updated in place.
type UpsertMonthlyRequest struct {
	CategoryID  snowflake.ID
	Description string
	Amount      int64
	Month       time.Time
}

// Service manages expense categories and entries.
type Service interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (ExpenseCategory, error)
	ListCategories(ctx context.Context) ([]ExpenseCategory, error)
	CreateExpense(ctx context.Context, req CreateExpenseRequest) (Expense, error)
	ListExpenses(ctx context.Context, from, to time.Time) ([]Expense, error)
	UpsertMonthly(ctx context.Context, req UpsertMonthlyRequest) (Expense, error)
}

var (
	ErrCategoryNameRequired = errors.New("category_name_is_required")
	ErrCategoryExists       = errors.New("category_name_already_exists")
	ErrCategoryNotFound     = errors.New("expense_category_not_found")
	ErrAmountNotPositive    = errors.New("expense_amount_must_be_positive")
	ErrDescriptionRequired  = errors.New("expense_description_is_required")
)
