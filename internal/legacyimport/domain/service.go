// Package domain defines the idempotent backfill surface for
// historical ledger data.
package domain

import (
	"context"
	"errors"
)

// LegacyDay is one historical day of revenue. Amount is in minor
// units; PatientCount is carried as a typed field, never encoded into
// notes.
type LegacyDay struct {
	Date         string `json:"date"`
	Amount       int64  `json:"amount"`
	PatientCount int64  `json:"patient_count"`
	Notes        string `json:"notes,omitempty"`
}

// LegacyExpense is one historical monthly expense line.
type LegacyExpense struct {
	CategoryName string `json:"category_name"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	Month        string `json:"month"`
}

// ImportRequest carries a batch of historical days and expenses.
type ImportRequest struct {
	Days     []LegacyDay     `json:"days"`
	Expenses []LegacyExpense `json:"expenses"`
}

// ImportResult reports what the batch actually changed. Skipped days
// were already present; re-running an import only grows Skipped.
type ImportResult struct {
	DaysImported    int `json:"days_imported"`
	DaysSkipped     int `json:"days_skipped"`
	ExpensesWritten int `json:"expenses_written"`
}

// Service backfills historical revenue and expenses. Import is
// idempotent: each day is one atomic unit and repeating a batch never
// duplicates rows.
type Service interface {
	Import(ctx context.Context, req ImportRequest) (ImportResult, error)
}

var (
	ErrInvalidDay    = errors.New("legacy_day_requires_date_and_positive_amount")
	ErrInvalidMonth  = errors.New("legacy_expense_month_must_be_yyyy_mm")
	ErrEmptyBatch    = errors.New("import_batch_is_empty")
	ErrInvalidExpense = errors.New("legacy_expense_requires_category_and_description")
	ErrWalkInPatient = errors.New("walk_in_patient_unavailable")
)
