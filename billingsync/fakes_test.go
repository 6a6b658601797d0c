package billingsync

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/meridianmed/clinicops_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// In-memory syncStore so orchestration semantics can be tested without
// MySQL, in the spirit of the DB-free determinism tests elsewhere in
// this codebase.
type fakeStore struct {
	mu sync.Mutex

	runs          map[uint]*models.BillingSyncRun
	finishUpdates map[uint]map[string]interface{}
	nextRunID     uint

	mappings    []models.PatientBillingMapping
	mappingsErr error

	invoices       map[string]*models.BillingInvoiceRecord
	invoiceInserts int
	charges        map[string]*models.RecurringChargeRecord
	chargeInserts  int
	payments       map[string]*models.BillingPaymentRecord
	paymentInserts int

	issues     []*models.PaymentIssue
	nextIssue  uint
	patients   map[int]models.PatientStatusKey
	holdWrites int

	syncErrors []models.BillingSyncError
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:          map[uint]*models.BillingSyncRun{},
		finishUpdates: map[uint]map[string]interface{}{},
		invoices:      map[string]*models.BillingInvoiceRecord{},
		charges:       map[string]*models.RecurringChargeRecord{},
		payments:      map[string]*models.BillingPaymentRecord{},
		patients:      map[int]models.PatientStatusKey{},
	}
}

func (s *fakeStore) CreateRun(ctx context.Context, run *models.BillingSyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRunID++
	run.ID = s.nextRunID
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *fakeStore) FinishRun(ctx context.Context, runID uint, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return errors.New("run not found")
	}
	s.finishUpdates[runID] = updates
	if v, ok := updates["status"].(string); ok {
		run.Status = v
	}
	if v, ok := updates["records_processed"].(int); ok {
		run.RecordsProcessed = v
	}
	if v, ok := updates["records_updated"].(int); ok {
		run.RecordsUpdated = v
	}
	if v, ok := updates["records_failed"].(int); ok {
		run.RecordsFailed = v
	}
	if v, ok := updates["error_message"].(*string); ok {
		run.ErrorMessage = v
	}
	return nil
}

func (s *fakeStore) RecordSyncError(ctx context.Context, rec *models.BillingSyncError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncErrors = append(s.syncErrors, *rec)
	return nil
}

func (s *fakeStore) ActiveMappings(ctx context.Context) ([]models.PatientBillingMapping, error) {
	if s.mappingsErr != nil {
		return nil, s.mappingsErr
	}
	return s.mappings, nil
}

func (s *fakeStore) FindInvoiceRecord(ctx context.Context, externalID string) (*models.BillingInvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.invoices[externalID]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) InsertInvoiceRecord(ctx context.Context, rec *models.BillingInvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.invoices[rec.ExternalInvoiceId] = &copied
	s.invoiceInserts++
	return nil
}

func (s *fakeStore) UpdateInvoiceRecord(ctx context.Context, externalID string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.invoices[externalID]
	if !ok {
		return errors.New("invoice not found")
	}
	for key, val := range updates {
		switch key {
		case "amount_paid":
			rec.AmountPaid = val.(decimal.Decimal)
		case "balance":
			rec.Balance = val.(decimal.Decimal)
		case "payment_status":
			rec.PaymentStatus = val.(models.InvoicePaymentStatus)
		case "days_overdue":
			rec.DaysOverdue = val.(int)
		case "synced_at":
			rec.SyncedAt = val.(time.Time)
		}
	}
	return nil
}

func (s *fakeStore) FindRecurringCharge(ctx context.Context, externalID string) (*models.RecurringChargeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.charges[externalID]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) InsertRecurringCharge(ctx context.Context, rec *models.RecurringChargeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.charges[rec.ExternalReceiptId] = &copied
	s.chargeInserts++
	return nil
}

func (s *fakeStore) UpdateRecurringCharge(ctx context.Context, externalID string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.charges[externalID]
	if !ok {
		return errors.New("charge not found")
	}
	for key, val := range updates {
		switch key {
		case "charge_date":
			rec.ChargeDate = val.(time.Time)
		case "amount":
			rec.Amount = val.(decimal.Decimal)
		case "payment_method":
			rec.PaymentMethod = val.(string)
		case "processor_status_raw":
			rec.ProcessorStatusRaw = val.(string)
		case "recurring_template_id":
			rec.RecurringTemplateId = val.(string)
		case "synced_at":
			rec.SyncedAt = val.(time.Time)
		}
	}
	return nil
}

func (s *fakeStore) FindPaymentRecord(ctx context.Context, externalID string) (*models.BillingPaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.payments[externalID]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) InsertPaymentRecord(ctx context.Context, rec *models.BillingPaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.payments[rec.ExternalPaymentId] = &copied
	s.paymentInserts++
	return nil
}

func (s *fakeStore) UpdatePaymentRecord(ctx context.Context, externalID string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.payments[externalID]
	if !ok {
		return errors.New("payment not found")
	}
	for key, val := range updates {
		switch key {
		case "payment_date":
			rec.PaymentDate = val.(time.Time)
		case "amount":
			rec.Amount = val.(decimal.Decimal)
		case "deposit_account":
			rec.DepositAccount = val.(string)
		case "payment_method":
			rec.PaymentMethod = val.(string)
		case "synced_at":
			rec.SyncedAt = val.(time.Time)
		}
	}
	return nil
}

func (s *fakeStore) FindOpenIssue(ctx context.Context, patientID int, sourceRecordID string) (*models.PaymentIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, issue := range s.issues {
		if issue.PatientId == patientID && issue.SourceRecordId == sourceRecordID && issue.ResolvedAt == nil {
			copied := *issue
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateIssue(ctx context.Context, issue *models.PaymentIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIssue++
	issue.ID = s.nextIssue
	copied := *issue
	s.issues = append(s.issues, &copied)
	return nil
}

func (s *fakeStore) PatientStatus(ctx context.Context, patientID int) (models.PatientStatusKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients[patientID], nil
}

func (s *fakeStore) EscalatePatientHold(ctx context.Context, patientID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.patients[patientID]
	if !models.HoldEligible(current) {
		return false, nil
	}
	s.patients[patientID] = models.PatientStatusHoldPaymentResearch
	s.holdWrites++
	return true, nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(syncStore) error) error {
	return fn(s)
}

func (s *fakeStore) openIssueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, issue := range s.issues {
		if issue.ResolvedAt == nil {
			count++
		}
	}
	return count
}

type fakeBillingAPI struct {
	invoices map[string][]billingInvoice
	charges  map[string][]billingCharge
	payments map[string][]billingPayment
	errFor   map[string]error
}

func newFakeBillingAPI() *fakeBillingAPI {
	return &fakeBillingAPI{
		invoices: map[string][]billingInvoice{},
		charges:  map[string][]billingCharge{},
		payments: map[string][]billingPayment{},
		errFor:   map[string]error{},
	}
}

func (a *fakeBillingAPI) ListInvoices(ctx context.Context, customerID string) ([]billingInvoice, error) {
	if err := a.errFor[customerID]; err != nil {
		return nil, err
	}
	return a.invoices[customerID], nil
}

func (a *fakeBillingAPI) ListRecurringCharges(ctx context.Context, customerID string) ([]billingCharge, error) {
	if err := a.errFor[customerID]; err != nil {
		return nil, err
	}
	return a.charges[customerID], nil
}

func (a *fakeBillingAPI) ListPayments(ctx context.Context, customerID string) ([]billingPayment, error) {
	if err := a.errFor[customerID]; err != nil {
		return nil, err
	}
	return a.payments[customerID], nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestWorker(store syncStore, api billingAPI, now time.Time) *syncWorker {
	return &syncWorker{
		store:           store,
		api:             api,
		logger:          quietLogger(),
		now:             func() time.Time { return now },
		thresholds:      defaultThresholds(),
		customerTimeout: time.Minute,
		workerCount:     2,
		lease: func(ctx context.Context, syncType string) (func(), error) {
			return func() {}, nil
		},
	}
}
