package domain

// DeriveStatus computes the lifecycle state implied by the settled
// amounts against an invoice. It is pure: callers pass the current
// status and the summed payments and write-offs in minor units.
//
// PAID when payments plus write-offs cover the total, PARTIAL when any
// payment exists but the balance is not yet covered, otherwise the
// current status is kept (PENDING and OVERDUE invoices stay as they
// are until money moves).
func DeriveStatus(current InvoiceStatus, total, paid, writtenOff int64) InvoiceStatus {
	if paid+writtenOff >= total {
		return InvoiceStatusPaid
	}
	if paid > 0 {
		return InvoiceStatusPartial
	}
	return current
}
