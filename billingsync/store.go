package billingsync

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/meridianmed/clinicops_backend/models"
	"gorm.io/gorm"
)

// syncStore is the durable surface the reconciliation core writes through.
// The gorm implementation below is the production one; tests use an
// in-memory fake.
type syncStore interface {
	CreateRun(ctx context.Context, run *models.BillingSyncRun) error
	FinishRun(ctx context.Context, runID uint, updates map[string]interface{}) error
	RecordSyncError(ctx context.Context, rec *models.BillingSyncError) error
	ActiveMappings(ctx context.Context) ([]models.PatientBillingMapping, error)

	FindInvoiceRecord(ctx context.Context, externalID string) (*models.BillingInvoiceRecord, error)
	InsertInvoiceRecord(ctx context.Context, rec *models.BillingInvoiceRecord) error
	UpdateInvoiceRecord(ctx context.Context, externalID string, updates map[string]interface{}) error

	FindRecurringCharge(ctx context.Context, externalID string) (*models.RecurringChargeRecord, error)
	InsertRecurringCharge(ctx context.Context, rec *models.RecurringChargeRecord) error
	UpdateRecurringCharge(ctx context.Context, externalID string, updates map[string]interface{}) error

	FindPaymentRecord(ctx context.Context, externalID string) (*models.BillingPaymentRecord, error)
	InsertPaymentRecord(ctx context.Context, rec *models.BillingPaymentRecord) error
	UpdatePaymentRecord(ctx context.Context, externalID string, updates map[string]interface{}) error

	FindOpenIssue(ctx context.Context, patientID int, sourceRecordID string) (*models.PaymentIssue, error)
	CreateIssue(ctx context.Context, issue *models.PaymentIssue) error
	PatientStatus(ctx context.Context, patientID int) (models.PatientStatusKey, error)
	EscalatePatientHold(ctx context.Context, patientID int) (bool, error)

	// InTx runs fn against a transactional view of the store. Used to scope
	// each record's upsert + issue + hold writes to one transaction.
	InTx(ctx context.Context, fn func(syncStore) error) error
}

type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func (s *gormStore) CreateRun(ctx context.Context, run *models.BillingSyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *gormStore) FinishRun(ctx context.Context, runID uint, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.BillingSyncRun{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

func (s *gormStore) RecordSyncError(ctx context.Context, rec *models.BillingSyncError) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStore) ActiveMappings(ctx context.Context) ([]models.PatientBillingMapping, error) {
	var mappings []models.PatientBillingMapping
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id").
		Find(&mappings).Error
	return mappings, err
}

func (s *gormStore) FindInvoiceRecord(ctx context.Context, externalID string) (*models.BillingInvoiceRecord, error) {
	var rec models.BillingInvoiceRecord
	err := s.db.WithContext(ctx).Where("external_invoice_id = ?", externalID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) InsertInvoiceRecord(ctx context.Context, rec *models.BillingInvoiceRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStore) UpdateInvoiceRecord(ctx context.Context, externalID string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.BillingInvoiceRecord{}).
		Where("external_invoice_id = ?", externalID).
		Updates(updates).Error
}

func (s *gormStore) FindRecurringCharge(ctx context.Context, externalID string) (*models.RecurringChargeRecord, error) {
	var rec models.RecurringChargeRecord
	err := s.db.WithContext(ctx).Where("external_receipt_id = ?", externalID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) InsertRecurringCharge(ctx context.Context, rec *models.RecurringChargeRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStore) UpdateRecurringCharge(ctx context.Context, externalID string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.RecurringChargeRecord{}).
		Where("external_receipt_id = ?", externalID).
		Updates(updates).Error
}

func (s *gormStore) FindPaymentRecord(ctx context.Context, externalID string) (*models.BillingPaymentRecord, error) {
	var rec models.BillingPaymentRecord
	err := s.db.WithContext(ctx).Where("external_payment_id = ?", externalID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) InsertPaymentRecord(ctx context.Context, rec *models.BillingPaymentRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormStore) UpdatePaymentRecord(ctx context.Context, externalID string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.BillingPaymentRecord{}).
		Where("external_payment_id = ?", externalID).
		Updates(updates).Error
}

func (s *gormStore) FindOpenIssue(ctx context.Context, patientID int, sourceRecordID string) (*models.PaymentIssue, error) {
	var issue models.PaymentIssue
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND source_record_id = ? AND resolved_at IS NULL", patientID, sourceRecordID).
		Take(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issue, nil
}

func (s *gormStore) CreateIssue(ctx context.Context, issue *models.PaymentIssue) error {
	return s.db.WithContext(ctx).Create(issue).Error
}

func (s *gormStore) PatientStatus(ctx context.Context, patientID int) (models.PatientStatusKey, error) {
	var status models.PatientStatusKey
	err := s.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ?", patientID).
		Select("status_key").
		Scan(&status).Error
	return status, err
}

// EscalatePatientHold performs the guarded, monotonic transition: the
// WHERE clause refuses to touch inactive patients or any existing hold,
// so re-running is a no-op and unrelated holds survive. Returns whether
// a row actually changed.
func (s *gormStore) EscalatePatientHold(ctx context.Context, patientID int) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ? AND status_key <> ? AND status_key NOT LIKE ?",
			patientID, models.PatientStatusInactive, "hold\\_%").
		Update("status_key", models.PatientStatusHoldPaymentResearch)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) InTx(ctx context.Context, fn func(syncStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
