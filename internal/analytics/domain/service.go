// Package domain defines the read-only revenue analytics surface.
// Nothing here mutates the ledger.
package domain

import (
	"context"
	"errors"
	"time"
)

// RangeRequest is an inclusive calendar-date range. Empty fields
// default to current-month-to-date in the reporting timezone.
type RangeRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// BreakdownRow is one slice of a revenue breakdown, in minor units.
type BreakdownRow struct {
	Key    string `json:"key"`
	Label  string `json:"label,omitempty"`
	Amount int64  `json:"amount"`
	Count  int64  `json:"count"`
}

// RevenueReport aggregates collected revenue over a range.
type RevenueReport struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Total       int64          `json:"total"`
	ByMethod    []BreakdownRow `json:"by_method"`
	ByProvider  []BreakdownRow `json:"by_provider"`
	BySpecialty []BreakdownRow `json:"by_specialty"`
	ByCategory  []BreakdownRow `json:"by_category"`
}

// MonthlyRevenue is one month's collected total.
type MonthlyRevenue struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Total int64      `json:"total"`
}

// Projection is one forecast month.
type Projection struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Amount int64      `json:"amount"`
}

// Forecast is a least-squares projection over monthly revenue.
type Forecast struct {
	Slope       float64          `json:"slope"`
	Intercept   float64          `json:"intercept"`
	History     []MonthlyRevenue `json:"history"`
	Projections []Projection     `json:"projections"`
}

// AgingBucket groups outstanding balances by invoice age in days.
// MaxDays < 0 means unbounded.
type AgingBucket struct {
	Label        string `json:"label"`
	MinDays      int    `json:"min_days"`
	MaxDays      int    `json:"max_days"`
	Outstanding  int64  `json:"outstanding"`
	InvoiceCount int64  `json:"invoice_count"`
}

// ARAgingReport classifies every unresolved invoice balance.
type ARAgingReport struct {
	AsOf             time.Time     `json:"as_of"`
	Buckets          []AgingBucket `json:"buckets"`
	TotalOutstanding int64         `json:"total_outstanding"`
}

// ProfitAndLoss nets collected revenue against expenses over a range.
type ProfitAndLoss struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	Revenue            int64          `json:"revenue"`
	Expenses           int64          `json:"expenses"`
	ExpensesByCategory []BreakdownRow `json:"expenses_by_category"`
	Net                int64          `json:"net"`
}

// Service answers aggregate queries over invoices, payments, and
// expenses. All reads tolerate slightly stale snapshots.
type Service interface {
	Revenue(ctx context.Context, req RangeRequest) (RevenueReport, error)
	MonthlyTrend(ctx context.Context, months int) ([]MonthlyRevenue, error)
	Forecast(ctx context.Context) (Forecast, error)
	ARAging(ctx context.Context) (ARAgingReport, error)
	ProfitAndLoss(ctx context.Context, req RangeRequest) (ProfitAndLoss, error)
}

var (
	ErrInvalidDateRange = errors.New("invalid_date_range")
)
