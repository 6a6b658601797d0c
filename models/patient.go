package models

import (
	"strings"
	"time"
)

type PatientStatusKey string

// The patient status enumeration is open: clinical workflows own their own
// hold variants (all prefixed "hold_"). This core only ever writes
// PatientStatusHoldPaymentResearch.
const (
	PatientStatusActive              PatientStatusKey = "active"
	PatientStatusInactive            PatientStatusKey = "inactive"
	PatientStatusHoldPaymentResearch PatientStatusKey = "hold_payment_research"
)

const holdStatusPrefix = "hold_"

// HoldEligible reports whether a patient in the given status may be
// escalated to the payment-research hold. Escalation is monotonic: an
// existing hold of any kind is never overwritten, and inactive patients
// are left alone.
func HoldEligible(current PatientStatusKey) bool {
	if current == PatientStatusInactive {
		return false
	}
	return !strings.HasPrefix(string(current), holdStatusPrefix)
}

type Patient struct {
	ID          int              `gorm:"primary_key" json:"id"`
	ChartNumber string           `gorm:"size:50;uniqueIndex" json:"chart_number"`
	FirstName   string           `gorm:"size:100" json:"first_name"`
	LastName    string           `gorm:"size:100" json:"last_name"`
	Email       string           `gorm:"size:255" json:"email"`
	Phone       string           `gorm:"size:50" json:"phone"`
	StatusKey   PatientStatusKey `gorm:"size:50;not null;default:active;index" json:"status_key"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
