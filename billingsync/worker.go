package billingsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meridianmed/clinicops_backend/config"
	"github.com/meridianmed/clinicops_backend/models"
	"github.com/meridianmed/clinicops_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSyncAlreadyRunning is returned when another reconciliation run
// holds the sync lease.
var ErrSyncAlreadyRunning = errors.New("a billing sync is already running")

type syncWorker struct {
	store      syncStore
	api        billingAPI
	logger     *logrus.Logger
	now        func() time.Time
	thresholds issueThresholds

	customerTimeout time.Duration
	workerCount     int

	// lease is swappable so orchestration tests don't need Redis.
	lease func(ctx context.Context, syncType string) (func(), error)
}

func newSyncWorker(db *gorm.DB, api billingAPI) *syncWorker {
	return &syncWorker{
		store:           newGormStore(db),
		api:             api,
		logger:          config.GetLogger(),
		now:             time.Now,
		thresholds:      loadThresholds(),
		customerTimeout: time.Duration(config.IntFromEnv("SYNC_CUSTOMER_TIMEOUT_SECONDS", 60)) * time.Second,
		workerCount:     config.IntFromEnv("SYNC_WORKER_COUNT", 4),
		lease: func(ctx context.Context, syncType string) (func(), error) {
			ttl := time.Duration(config.IntFromEnv("SYNC_LEASE_TTL_SECONDS", 900)) * time.Second
			return utils.ObtainSyncLease(ctx, syncType, ttl)
		},
	}
}

// RunBillingSync executes one reconciliation run against the configured
// database and external billing API. triggeredBy is the explicit caller
// identity (an operator username or the deployed system identity); it is
// never re-derived from storage at run time.
func RunBillingSync(ctx context.Context, triggeredBy string) (SyncRunResult, error) {
	api, err := newBillingClient()
	if err != nil {
		return SyncRunResult{}, err
	}
	w := newSyncWorker(config.GetDB(), api)
	return w.RunSync(ctx, triggeredBy)
}

type tally struct {
	processed int
	updated   int
	failed    int
}

func (t *tally) add(other tally) {
	t.processed += other.processed
	t.updated += other.updated
	t.failed += other.failed
}

// RunSync drives one full reconciliation: open the audit row, fan out
// over active patient mappings, aggregate counters, close the run. A
// failure inside one customer is recorded and skipped; only failing to
// start at all (lease, audit row, mapping fetch) fails the run.
func (w *syncWorker) RunSync(ctx context.Context, triggeredBy string) (SyncRunResult, error) {
	release, err := w.lease(ctx, models.SyncTypeBillingReconciliation)
	if err != nil {
		if errors.Is(err, utils.ErrLeaseNotObtained) {
			return SyncRunResult{}, ErrSyncAlreadyRunning
		}
		return SyncRunResult{}, err
	}
	defer release()

	startedAt := w.now()
	run := &models.BillingSyncRun{
		SyncType:  models.SyncTypeBillingReconciliation,
		Status:    models.SyncRunStatusRunning,
		CreatedBy: triggeredBy,
		StartedAt: &startedAt,
	}
	if err := w.store.CreateRun(ctx, run); err != nil {
		return SyncRunResult{}, fmt.Errorf("create sync run: %w", err)
	}

	mappings, err := w.store.ActiveMappings(ctx)
	if err != nil {
		return w.finishFailed(ctx, run.ID, startedAt, fmt.Errorf("load patient mappings: %w", err))
	}

	var (
		mu    sync.Mutex
		total tally
	)

	workers := w.workerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(mappings) && len(mappings) > 0 {
		workers = len(mappings)
	}

	jobs := make(chan models.PatientBillingMapping)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				c := w.processCustomer(ctx, run.ID, m)
				mu.Lock()
				total.add(c)
				mu.Unlock()
			}
		}()
	}
	for _, m := range mappings {
		jobs <- m
	}
	close(jobs)
	wg.Wait()

	completedAt := w.now()
	if err := w.store.FinishRun(ctx, run.ID, map[string]interface{}{
		"status":            models.SyncRunStatusCompleted,
		"records_processed": total.processed,
		"records_updated":   total.updated,
		"records_failed":    total.failed,
		"completed_at":      completedAt,
		"duration_ms":       completedAt.Sub(startedAt).Milliseconds(),
	}); err != nil {
		return SyncRunResult{}, fmt.Errorf("finish sync run: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"sync_run_id": run.ID,
		"processed":   total.processed,
		"updated":     total.updated,
		"failed":      total.failed,
		"customers":   len(mappings),
	}).Info("billing sync completed")

	return SyncRunResult{
		SyncRunId: run.ID,
		Status:    models.SyncRunStatusCompleted,
		Processed: total.processed,
		Updated:   total.updated,
		Failed:    total.failed,
	}, nil
}

func (w *syncWorker) finishFailed(ctx context.Context, runID uint, startedAt time.Time, cause error) (SyncRunResult, error) {
	msg := cause.Error()
	completedAt := w.now()
	if err := w.store.FinishRun(ctx, runID, map[string]interface{}{
		"status":        models.SyncRunStatusFailed,
		"error_message": &msg,
		"completed_at":  completedAt,
		"duration_ms":   completedAt.Sub(startedAt).Milliseconds(),
	}); err != nil {
		config.LogError(w.logger, "billingsync", "finishFailed", "mark run failed", runID, err)
	}
	return SyncRunResult{SyncRunId: runID, Status: models.SyncRunStatusFailed}, cause
}

// processCustomer reconciles one mapped customer's invoices, recurring
// charges and payments. Every failure here is absorbed into counters and
// durable error rows; nothing propagates to the run loop.
func (w *syncWorker) processCustomer(ctx context.Context, runID uint, m models.PatientBillingMapping) (c tally) {
	cctx, cancel := context.WithTimeout(ctx, w.customerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.failed++
			w.recordSyncError(ctx, runID, "customer", m.ExternalCustomerId, "panic", fmt.Sprintf("%v", r), true)
		}
	}()

	invoices, err := w.api.ListInvoices(cctx, m.ExternalCustomerId)
	if err != nil {
		c.failed++
		w.recordSyncError(ctx, runID, "invoice", m.ExternalCustomerId, "fetch_failed", err.Error(), true)
		invoices = nil
	}
	charges, err := w.api.ListRecurringCharges(cctx, m.ExternalCustomerId)
	if err != nil {
		c.failed++
		w.recordSyncError(ctx, runID, "recurring_charge", m.ExternalCustomerId, "fetch_failed", err.Error(), true)
		charges = nil
	}
	payments, err := w.api.ListPayments(cctx, m.ExternalCustomerId)
	if err != nil {
		c.failed++
		w.recordSyncError(ctx, runID, "payment", m.ExternalCustomerId, "fetch_failed", err.Error(), true)
		payments = nil
	}

	for _, inv := range invoices {
		c.processed++
		if inv.ID == "" {
			c.failed++
			w.recordSyncError(ctx, runID, "invoice", "", "missing_id", "invoice id missing", false)
			continue
		}
		err := w.store.InTx(cctx, func(tx syncStore) error {
			return w.reconcileInvoice(cctx, tx, m.ExternalCustomerId, m.PatientId, inv)
		})
		if err != nil {
			c.failed++
			w.recordSyncError(ctx, runID, "invoice", inv.ID, "sync_failed", err.Error(), true)
			continue
		}
		c.updated++
	}

	for _, charge := range charges {
		c.processed++
		if charge.ID == "" {
			c.failed++
			w.recordSyncError(ctx, runID, "recurring_charge", "", "missing_id", "receipt id missing", false)
			continue
		}
		err := w.store.InTx(cctx, func(tx syncStore) error {
			return w.reconcileRecurringCharge(cctx, tx, m.ExternalCustomerId, m.PatientId, charge)
		})
		if err != nil {
			c.failed++
			w.recordSyncError(ctx, runID, "recurring_charge", charge.ID, "sync_failed", err.Error(), true)
			continue
		}
		c.updated++
	}

	for _, payment := range payments {
		c.processed++
		if payment.ID == "" {
			c.failed++
			w.recordSyncError(ctx, runID, "payment", "", "missing_id", "payment id missing", false)
			continue
		}
		err := w.store.InTx(cctx, func(tx syncStore) error {
			return w.reconcilePayment(cctx, tx, m.ExternalCustomerId, m.PatientId, payment)
		})
		if err != nil {
			c.failed++
			w.recordSyncError(ctx, runID, "payment", payment.ID, "sync_failed", err.Error(), true)
			continue
		}
		c.updated++
	}

	return c
}

func (w *syncWorker) recordSyncError(ctx context.Context, runID uint, entityType string, externalID string, code string, message string, retryable bool) {
	rec := &models.BillingSyncError{
		SyncRunId:  runID,
		EntityType: entityType,
		ExternalId: externalID,
		ErrorCode:  code,
		Message:    message,
		Retryable:  retryable,
	}
	if err := w.store.RecordSyncError(ctx, rec); err != nil {
		config.LogError(w.logger, "billingsync", "recordSyncError", "persist sync error", externalID, err)
	}
}
