package server

import (
	"errors"
	"net/http"

	analyticsdomain "github.com/clinicore/ledger/internal/analytics/domain"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	directorydomain "github.com/clinicore/ledger/internal/directory/domain"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/invoice/format"
	legacydomain "github.com/clinicore/ledger/internal/legacyimport/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string         `json:"type"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
)

// ErrorHandlingMiddleware maps domain errors onto the wire taxonomy:
// Validation 400, NotFound 404, Conflict 409, everything else a
// generic 500 that leaks no storage detail.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for the error middleware and stops the
// handler chain.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	// Rejections that carry the violated quantity report it so the
	// caller can self-correct without a second round trip.
	var overpayment *paymentdomain.OverpaymentError
	if errors.As(err, &overpayment) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "overpayment",
			Message: overpayment.Error(),
			Details: map[string]any{
				"remaining":         overpayment.Remaining,
				"remaining_display": format.Amount(overpayment.Remaining),
			},
		}
	}
	var excess *writeoffdomain.ExcessWriteOffError
	if errors.As(err, &excess) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "excess_write_off",
			Message: excess.Error(),
			Details: map[string]any{
				"remaining":         excess.Remaining,
				"remaining_display": format.Amount(excess.Remaining),
			},
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrPatientRequired),
		errors.Is(err, invoicedomain.ErrNoLineItems),
		errors.Is(err, invoicedomain.ErrInvalidLineItem),
		errors.Is(err, invoicedomain.ErrNegativeTotal),
		errors.Is(err, invoicedomain.ErrInvalidDateRange),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrAmountNotPositive),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrMissingReceiver),
		errors.Is(err, writeoffdomain.ErrAmountNotPositive),
		errors.Is(err, writeoffdomain.ErrInvalidReason),
		errors.Is(err, writeoffdomain.ErrMissingApprover),
		errors.Is(err, closingdomain.ErrInvalidDate),
		errors.Is(err, closingdomain.ErrMissingCloser),
		errors.Is(err, closingdomain.ErrNegativeActual),
		errors.Is(err, analyticsdomain.ErrInvalidDateRange),
		errors.Is(err, expensedomain.ErrCategoryNameRequired),
		errors.Is(err, expensedomain.ErrAmountNotPositive),
		errors.Is(err, expensedomain.ErrDescriptionRequired),
		errors.Is(err, legacydomain.ErrInvalidDay),
		errors.Is(err, legacydomain.ErrInvalidMonth),
		errors.Is(err, legacydomain.ErrInvalidExpense),
		errors.Is(err, legacydomain.ErrEmptyBatch):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrInvoiceNotOpen),
		errors.Is(err, invoicedomain.ErrDuplicateNumber),
		errors.Is(err, paymentdomain.ErrInvoiceClosed),
		errors.Is(err, writeoffdomain.ErrInvoiceClosed),
		errors.Is(err, closingdomain.ErrAlreadyClosed),
		errors.Is(err, expensedomain.ErrCategoryExists):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, expensedomain.ErrCategoryNotFound),
		errors.Is(err, directorydomain.ErrPatientNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog labels request-log entries without re-running the
// full mapping.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Code
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	default:
		return "validation", payload.Code
	}
}
