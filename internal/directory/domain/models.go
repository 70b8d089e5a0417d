// Package domain contains read-only reference models owned by external
// directory services. The ledger joins against them but never mutates
// them, except for the reserved legacy walk-in patient.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Patient is the directory projection used for invoice display.
type Patient struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	DisplayName     string       `gorm:"type:text;not null" json:"display_name"`
	MedicalRecordNo string       `gorm:"type:text;not null;uniqueIndex:ux_patients_mrn" json:"medical_record_no"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Patient) TableName() string { return "patients" }

// Provider is the directory projection for billing doctors.
type Provider struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DisplayName string       `gorm:"type:text;not null" json:"display_name"`
	Specialty   string       `gorm:"type:text;not null" json:"specialty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Provider) TableName() string { return "providers" }

// Consultation links an invoice to the visit it bills for.
type Consultation struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PatientID  snowflake.ID `gorm:"not null;index" json:"patient_id"`
	ProviderID snowflake.ID `gorm:"not null;index" json:"provider_id"`
	OccurredAt time.Time    `gorm:"not null" json:"occurred_at"`
}

// TableName sets the database table name.
func (Consultation) TableName() string { return "consultations" }

var (
	ErrPatientNotFound = errors.New("patient_not_found")
)
