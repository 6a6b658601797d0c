package billingsync

import "encoding/json"

// External record shapes, limited to the fields this core consumes.

type billingInvoice struct {
	ID        string      `json:"id"`
	DocNumber string      `json:"doc_number"`
	TxnDate   string      `json:"txn_date"`
	DueDate   string      `json:"due_date"`
	TotalAmt  json.Number `json:"total_amt"`
	Balance   json.Number `json:"balance"`
}

type billingCharge struct {
	ID                  string      `json:"id"`
	TxnDate             string      `json:"txn_date"`
	TotalAmt            json.Number `json:"total_amt"`
	PaymentMethod       string      `json:"payment_method"`
	RecurringTemplateId string      `json:"recurring_template_id"`
	ProcessorResponse   struct {
		Status string `json:"status"`
	} `json:"processor_response"`
}

type billingPayment struct {
	ID             string      `json:"id"`
	TxnDate        string      `json:"txn_date"`
	TotalAmt       json.Number `json:"total_amt"`
	DepositAccount string      `json:"deposit_account"`
	PaymentMethod  string      `json:"payment_method"`
}

// SyncRunResult is the summary returned to whoever triggered a run.
type SyncRunResult struct {
	SyncRunId uint   `json:"syncRunId"`
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Failed    int    `json:"failed"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunResponse struct {
	ID               uint    `json:"id"`
	SyncType         string  `json:"syncType"`
	Status           string  `json:"status"`
	RecordsProcessed int     `json:"recordsProcessed"`
	RecordsUpdated   int     `json:"recordsUpdated"`
	RecordsFailed    int     `json:"recordsFailed"`
	CreatedBy        string  `json:"createdBy"`
	StartedAt        *string `json:"startedAt"`
	CompletedAt      *string `json:"completedAt"`
	DurationMs       int64   `json:"durationMs"`
	ErrorMessage     *string `json:"errorMessage"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type IssueListResponse struct {
	Items []IssueResponse `json:"items"`
}

type IssueResponse struct {
	ID                uint    `json:"id"`
	PatientId         int     `json:"patientId"`
	SourceRecordId    string  `json:"sourceRecordId"`
	IssueType         string  `json:"issueType"`
	Severity          string  `json:"severity"`
	AmountOwed        string  `json:"amountOwed"`
	DaysOverdue       int     `json:"daysOverdue"`
	PreviousStatusKey string  `json:"previousStatusKey"`
	AutoUpdated       bool    `json:"autoUpdated"`
	CreatedAt         string  `json:"createdAt"`
	ResolvedAt        *string `json:"resolvedAt"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	TriggeredBy string `json:"triggered_by"`
	SyncType    string `json:"sync_type"`
}
