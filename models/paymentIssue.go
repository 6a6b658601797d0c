package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentIssueType string

const (
	IssueTypeOverdueInvoice     PaymentIssueType = "overdue_invoice"
	IssueTypeOutstandingBalance PaymentIssueType = "outstanding_balance"
	IssueTypePaymentDeclined    PaymentIssueType = "payment_declined"
)

type IssueSeverity string

const (
	IssueSeverityInfo     IssueSeverity = "info"
	IssueSeverityWarning  IssueSeverity = "warning"
	IssueSeverityCritical IssueSeverity = "critical"
)

// PaymentIssue is one detected, unresolved financial problem tied to a
// patient and a source ledger record. At most one open issue
// (resolved_at IS NULL) exists per (patient_id, source_record_id); the
// detector checks before inserting. ResolvedAt is written only by the
// manual resolution tooling, never by the sync core.
type PaymentIssue struct {
	ID                uint             `gorm:"primary_key" json:"id"`
	PatientId         int              `gorm:"not null;index:idx_issue_patient_source" json:"patient_id"`
	SourceRecordId    string           `gorm:"size:128;not null;index:idx_issue_patient_source" json:"source_record_id"`
	IssueType         PaymentIssueType `gorm:"size:30;not null;index" json:"issue_type"`
	Severity          IssueSeverity    `gorm:"size:10;not null;index" json:"severity"`
	AmountOwed        decimal.Decimal  `gorm:"type:decimal(20,6)" json:"amount_owed"`
	DaysOverdue       int              `json:"days_overdue"`
	PreviousStatusKey PatientStatusKey `gorm:"size:50" json:"previous_status_key"`
	AutoUpdated       bool             `gorm:"default:false" json:"auto_updated"`
	ResolvedAt        *time.Time       `gorm:"index" json:"resolved_at"`
	ResolvedBy        string           `gorm:"size:100" json:"resolved_by"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
