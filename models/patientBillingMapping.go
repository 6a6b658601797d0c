package models

import "time"

// PatientBillingMapping links an external billing customer to a patient.
// Rows are created by the intake/mapping workflow; the sync core only
// reads them. At most one active mapping exists per external customer id.
type PatientBillingMapping struct {
	ID                 uint      `gorm:"primary_key" json:"id"`
	ExternalCustomerId string    `gorm:"size:128;not null;index" json:"external_customer_id"`
	PatientId          int       `gorm:"not null;index" json:"patient_id"`
	Active             bool      `gorm:"default:true;index" json:"active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
