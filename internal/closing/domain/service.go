package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
)

// MethodTotals holds one amount per payment method, in minor units.
type MethodTotals struct {
	Cash         int64 `json:"cash"`
	Card         int64 `json:"card"`
	Insurance    int64 `json:"insurance"`
	BankTransfer int64 `json:"bank_transfer"`
}

// Total sums all methods.
func (t MethodTotals) Total() int64 {
	return t.Cash + t.Card + t.Insurance + t.BankTransfer
}

// Get returns the amount for a method.
func (t MethodTotals) Get(m paymentdomain.Method) int64 {
	switch m {
	case paymentdomain.MethodCash:
		return t.Cash
	case paymentdomain.MethodCard:
		return t.Card
	case paymentdomain.MethodInsurance:
		return t.Insurance
	case paymentdomain.MethodBankTransfer:
		return t.BankTransfer
	}
	return 0
}

// Add accumulates an amount into the method's slot.
func (t *MethodTotals) Add(m paymentdomain.Method, amount int64) {
	switch m {
	case paymentdomain.MethodCash:
		t.Cash += amount
	case paymentdomain.MethodCard:
		t.Card += amount
	case paymentdomain.MethodInsurance:
		t.Insurance += amount
	case paymentdomain.MethodBankTransfer:
		t.BankTransfer += amount
	}
}

// DailySummary reports one day's takings before or after closing.
type DailySummary struct {
	Date              string        `json:"date"`
	Status            ClosingStatus `json:"status"`
	Expected          MethodTotals  `json:"expected"`
	ExpectedTotal     int64         `json:"expected_total"`
	InvoiceCount      int64         `json:"invoice_count"`
	PaymentCount      int64         `json:"payment_count"`
	ConsultationCount int64         `json:"consultation_count"`
	PatientsSeen      int64         `json:"patients_seen"`
	ExpenseTotal      int64         `json:"expense_total"`
	Closing           *DailyClosing `json:"closing,omitempty"`
}

// CloseDayRequest finalizes one calendar day against counted totals.
type CloseDayRequest struct {
	Date     string       `json:"date"`
	Actual   MethodTotals `json:"actual"`
	Notes    string       `json:"notes,omitempty"`
	ClosedBy string       `json:"closed_by"`
}

// Service reconciles and closes calendar days.
type Service interface {
	GetDailySummary(ctx context.Context, date string) (DailySummary, error)
	CloseDay(ctx context.Context, req CloseDayRequest) (DailyClosing, error)
}

var (
	ErrInvalidDate    = errors.New("date_must_be_yyyy_mm_dd")
	ErrAlreadyClosed  = errors.New("day_already_closed")
	ErrMissingCloser  = errors.New("closed_by_is_required")
	ErrNegativeActual = errors.New("actual_totals_must_not_be_negative")
)
