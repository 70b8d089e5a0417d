package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action identifies the financial event being recorded.
type Action string

const (
	ActionInvoiceIssued     Action = "invoice.issued"
	ActionInvoiceCancelled  Action = "invoice.cancelled"
	ActionInvoiceOverdue    Action = "invoice.marked_overdue"
	ActionPaymentRecorded   Action = "payment.recorded"
	ActionWriteOffRecorded  Action = "writeoff.recorded"
	ActionDayClosed         Action = "closing.closed"
	ActionLegacyDayImported Action = "legacy.day_imported"
)

// AuditLog is an append-only record of a financial mutation.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Action     Action            `gorm:"type:text;not null;index" json:"action"`
	EntityType string            `gorm:"type:text;not null" json:"entity_type"`
	EntityID   string            `gorm:"type:text;not null;index" json:"entity_id"`
	ActorID    string            `gorm:"type:text" json:"actor_id,omitempty"`
	RequestID  string            `gorm:"type:text" json:"request_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is the write-side payload for Record.
type Entry struct {
	Action     Action
	EntityType string
	EntityID   string
	ActorID    string
	Metadata   map[string]any
}

// Service records financial events. Failures must never abort the
// business transaction that triggered them.
type Service interface {
	Record(ctx context.Context, entry Entry)
}
