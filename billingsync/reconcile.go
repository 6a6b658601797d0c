package billingsync

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/meridianmed/clinicops_backend/models"
	"github.com/shopspring/decimal"
)

// declinedStatuses is the exact-match set of payment-processor outcome
// tokens treated as a failed charge. Raw statuses are free text, so
// membership is checked on the whole lower-cased token, never by
// substring ("error: 0 declines" must not match).
var declinedStatuses = map[string]struct{}{
	"declined": {},
	"error":    {},
	"failed":   {},
	"rejected": {},
	"unknown":  {},
}

func isDeclinedStatus(raw string) bool {
	token := strings.ToLower(strings.TrimSpace(raw))
	_, ok := declinedStatuses[token]
	return ok
}

// invoiceStanding classifies an invoice from its due date and balance.
// daysOverdue is 0 whenever the balance is settled or the due date has
// not passed.
func invoiceStanding(dueDate time.Time, balance decimal.Decimal, now time.Time) (models.InvoicePaymentStatus, int) {
	if balance.LessThanOrEqual(decimal.Zero) {
		return models.InvoicePaymentStatusPaid, 0
	}
	if !now.After(dueDate) {
		return models.InvoicePaymentStatusCurrent, 0
	}
	days := int(now.Sub(dueDate).Hours() / 24)
	if days <= 0 {
		return models.InvoicePaymentStatusCurrent, 0
	}
	return models.InvoicePaymentStatusOverdue, days
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func parseTimeOrNow(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return now
}

// reconcileInvoice merges one external invoice into the ledger and, when
// a balance remains, hands the record to the issue detector. The upsert
// key is the external invoice id: inserts carry the full row, re-syncs
// rewrite only the mutable fields.
func (w *syncWorker) reconcileInvoice(ctx context.Context, store syncStore, customerID string, patientID int, inv billingInvoice) error {
	now := w.now()

	amountDue := decimalFromNumber(inv.TotalAmt)
	balance := decimalFromNumber(inv.Balance)
	amountPaid := amountDue.Sub(balance)
	dueDate := parseTimeOrNow(inv.DueDate, now)
	status, daysOverdue := invoiceStanding(dueDate, balance, now)

	existing, err := store.FindInvoiceRecord(ctx, inv.ID)
	if err != nil {
		return err
	}

	mutable := map[string]interface{}{
		"amount_paid":    amountPaid,
		"balance":        balance,
		"payment_status": status,
		"days_overdue":   daysOverdue,
		"synced_at":      now,
	}

	if existing == nil {
		rec := &models.BillingInvoiceRecord{
			ExternalInvoiceId:  inv.ID,
			ExternalCustomerId: customerID,
			PatientId:          patientID,
			InvoiceNumber:      strings.TrimSpace(inv.DocNumber),
			InvoiceDate:        parseTimeOrNow(inv.TxnDate, now),
			DueDate:            dueDate,
			AmountDue:          amountDue,
			AmountPaid:         amountPaid,
			Balance:            balance,
			PaymentStatus:      status,
			DaysOverdue:        daysOverdue,
			SyncedAt:           now,
		}
		if err := store.InsertInvoiceRecord(ctx, rec); err != nil {
			// Insert raced a concurrent upsert of the same external id;
			// fall through to the update path.
			if !isDuplicateKeyErr(err) {
				return err
			}
			if err := store.UpdateInvoiceRecord(ctx, inv.ID, mutable); err != nil {
				return err
			}
		}
	} else {
		if err := store.UpdateInvoiceRecord(ctx, inv.ID, mutable); err != nil {
			return err
		}
	}

	if balance.GreaterThan(decimal.Zero) {
		issueType := models.IssueTypeOutstandingBalance
		if status == models.InvoicePaymentStatusOverdue {
			issueType = models.IssueTypeOverdueInvoice
		}
		if _, err := w.maybeRaiseIssue(ctx, store, patientID, inv.ID, issueType, balance, daysOverdue, nil); err != nil {
			return err
		}
	}
	return nil
}

// reconcileRecurringCharge is a true upsert: the external system corrects
// receipts after the fact, so every synced field is mutable on conflict.
// A declined processor outcome raises a payment_declined issue at fixed
// warning severity; a decline is immediate, not aging, so daysOverdue is 0.
func (w *syncWorker) reconcileRecurringCharge(ctx context.Context, store syncStore, customerID string, patientID int, charge billingCharge) error {
	now := w.now()
	amount := decimalFromNumber(charge.TotalAmt)
	statusRaw := strings.TrimSpace(charge.ProcessorResponse.Status)

	existing, err := store.FindRecurringCharge(ctx, charge.ID)
	if err != nil {
		return err
	}

	mutable := map[string]interface{}{
		"charge_date":           parseTimeOrNow(charge.TxnDate, now),
		"amount":                amount,
		"payment_method":        strings.TrimSpace(charge.PaymentMethod),
		"processor_status_raw":  statusRaw,
		"recurring_template_id": strings.TrimSpace(charge.RecurringTemplateId),
		"synced_at":             now,
	}

	if existing == nil {
		rec := &models.RecurringChargeRecord{
			ExternalReceiptId:   charge.ID,
			ExternalCustomerId:  customerID,
			PatientId:           patientID,
			ChargeDate:          parseTimeOrNow(charge.TxnDate, now),
			Amount:              amount,
			PaymentMethod:       strings.TrimSpace(charge.PaymentMethod),
			ProcessorStatusRaw:  statusRaw,
			RecurringTemplateId: strings.TrimSpace(charge.RecurringTemplateId),
			SyncedAt:            now,
		}
		if err := store.InsertRecurringCharge(ctx, rec); err != nil {
			if !isDuplicateKeyErr(err) {
				return err
			}
			if err := store.UpdateRecurringCharge(ctx, charge.ID, mutable); err != nil {
				return err
			}
		}
	} else {
		if err := store.UpdateRecurringCharge(ctx, charge.ID, mutable); err != nil {
			return err
		}
	}

	if isDeclinedStatus(statusRaw) {
		severity := models.IssueSeverityWarning
		if _, err := w.maybeRaiseIssue(ctx, store, patientID, charge.ID, models.IssueTypePaymentDeclined, amount, 0, &severity); err != nil {
			return err
		}
	}
	return nil
}

// reconcilePayment upserts a one-off payment. A recorded payment is
// evidence of resolution activity, so no issue is ever raised here.
func (w *syncWorker) reconcilePayment(ctx context.Context, store syncStore, customerID string, patientID int, payment billingPayment) error {
	now := w.now()
	amount := decimalFromNumber(payment.TotalAmt)

	existing, err := store.FindPaymentRecord(ctx, payment.ID)
	if err != nil {
		return err
	}

	mutable := map[string]interface{}{
		"payment_date":    parseTimeOrNow(payment.TxnDate, now),
		"amount":          amount,
		"deposit_account": strings.TrimSpace(payment.DepositAccount),
		"payment_method":  strings.TrimSpace(payment.PaymentMethod),
		"synced_at":       now,
	}

	if existing == nil {
		rec := &models.BillingPaymentRecord{
			ExternalPaymentId:  payment.ID,
			ExternalCustomerId: customerID,
			PatientId:          patientID,
			PaymentDate:        parseTimeOrNow(payment.TxnDate, now),
			Amount:             amount,
			DepositAccount:     strings.TrimSpace(payment.DepositAccount),
			PaymentMethod:      strings.TrimSpace(payment.PaymentMethod),
			SyncedAt:           now,
		}
		if err := store.InsertPaymentRecord(ctx, rec); err != nil {
			if !isDuplicateKeyErr(err) {
				return err
			}
			return store.UpdatePaymentRecord(ctx, payment.ID, mutable)
		}
		return nil
	}
	return store.UpdatePaymentRecord(ctx, payment.ID, mutable)
}
