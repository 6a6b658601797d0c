package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoicePaymentStatus string

const (
	InvoicePaymentStatusPaid    InvoicePaymentStatus = "paid"
	InvoicePaymentStatusCurrent InvoicePaymentStatus = "current"
	InvoicePaymentStatusOverdue InvoicePaymentStatus = "overdue"
)

// BillingInvoiceRecord is the local mirror of one external invoice.
// Upserted by external invoice id, never deleted. Invoice number, dates
// and the customer link are immutable after first sync; only the paid
// amount, balance, derived status and sync timestamp move on re-sync.
type BillingInvoiceRecord struct {
	ID                 uint                 `gorm:"primary_key" json:"id"`
	ExternalInvoiceId  string               `gorm:"size:128;not null;uniqueIndex" json:"external_invoice_id"`
	ExternalCustomerId string               `gorm:"size:128;not null;index" json:"external_customer_id"`
	PatientId          int                  `gorm:"not null;index" json:"patient_id"`
	InvoiceNumber      string               `gorm:"size:100" json:"invoice_number"`
	InvoiceDate        time.Time            `json:"invoice_date"`
	DueDate            time.Time            `json:"due_date"`
	AmountDue          decimal.Decimal      `gorm:"type:decimal(20,6)" json:"amount_due"`
	AmountPaid         decimal.Decimal      `gorm:"type:decimal(20,6)" json:"amount_paid"`
	Balance            decimal.Decimal      `gorm:"type:decimal(20,6)" json:"balance"`
	PaymentStatus      InvoicePaymentStatus `gorm:"size:20;index" json:"payment_status"`
	DaysOverdue        int                  `json:"days_overdue"`
	SyncedAt           time.Time            `json:"synced_at"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecurringChargeRecord mirrors one sales-receipt-style recurring charge.
// The external system can correct these after the fact, so every synced
// field is mutable on conflict.
type RecurringChargeRecord struct {
	ID                  uint            `gorm:"primary_key" json:"id"`
	ExternalReceiptId   string          `gorm:"size:128;not null;uniqueIndex" json:"external_receipt_id"`
	ExternalCustomerId  string          `gorm:"size:128;not null;index" json:"external_customer_id"`
	PatientId           int             `gorm:"not null;index" json:"patient_id"`
	ChargeDate          time.Time       `json:"charge_date"`
	Amount              decimal.Decimal `gorm:"type:decimal(20,6)" json:"amount"`
	PaymentMethod       string          `gorm:"size:50" json:"payment_method"`
	ProcessorStatusRaw  string          `gorm:"size:255" json:"processor_status_raw"`
	RecurringTemplateId string          `gorm:"size:128" json:"recurring_template_id"`
	SyncedAt            time.Time       `json:"synced_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BillingPaymentRecord mirrors a one-off payment. Informational ledger
// context only; payments never raise issues.
type BillingPaymentRecord struct {
	ID                 uint            `gorm:"primary_key" json:"id"`
	ExternalPaymentId  string          `gorm:"size:128;not null;uniqueIndex" json:"external_payment_id"`
	ExternalCustomerId string          `gorm:"size:128;not null;index" json:"external_customer_id"`
	PatientId          int             `gorm:"not null;index" json:"patient_id"`
	PaymentDate        time.Time       `json:"payment_date"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,6)" json:"amount"`
	DepositAccount     string          `gorm:"size:100" json:"deposit_account"`
	PaymentMethod      string          `gorm:"size:50" json:"payment_method"`
	SyncedAt           time.Time       `json:"synced_at"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
