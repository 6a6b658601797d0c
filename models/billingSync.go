package models

import "time"

const (
	SyncTypeBillingReconciliation = "billing_reconciliation"
)

const (
	SyncRunStatusRunning   = "running"
	SyncRunStatusCompleted = "completed"
	SyncRunStatusFailed    = "failed"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredSystem = "system"
)

// BillingSyncRun is the audit record of one reconciliation invocation.
// Created in `running` before any external call; exactly one terminal
// update (`completed` or `failed`) at the end. Per-customer failures
// become counters + BillingSyncError rows, never a failed run.
type BillingSyncRun struct {
	ID               uint       `gorm:"primary_key" json:"id"`
	SyncType         string     `gorm:"size:50;not null;index" json:"sync_type"`
	Status           string     `gorm:"size:20;not null;index" json:"status"`
	RecordsProcessed int        `json:"records_processed"`
	RecordsUpdated   int        `json:"records_updated"`
	RecordsFailed    int        `json:"records_failed"`
	CreatedBy        string     `gorm:"size:100" json:"created_by"`
	ErrorMessage     *string    `gorm:"type:text" json:"error_message"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	DurationMs       int64      `json:"duration_ms"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BillingSyncError is one per-record or per-customer failure inside a
// run, durable so operators can inspect granular failures after the fact.
type BillingSyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
