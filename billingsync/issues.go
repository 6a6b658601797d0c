package billingsync

import (
	"context"

	"github.com/meridianmed/clinicops_backend/config"
	"github.com/meridianmed/clinicops_backend/models"
	"github.com/meridianmed/clinicops_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// issueThresholds is the severity table, data not code, so operations
// can tune it via env without a redeploy.
type issueThresholds struct {
	CriticalDays   int
	CriticalAmount decimal.Decimal
	WarningDays    int
	WarningAmount  decimal.Decimal
}

func defaultThresholds() issueThresholds {
	return issueThresholds{
		CriticalDays:   60,
		CriticalAmount: decimal.NewFromInt(500),
		WarningDays:    30,
		WarningAmount:  decimal.NewFromInt(200),
	}
}

func loadThresholds() issueThresholds {
	def := defaultThresholds()
	return issueThresholds{
		CriticalDays:   config.IntFromEnv("ISSUE_CRITICAL_DAYS", def.CriticalDays),
		CriticalAmount: utils.EnvDecimalDefault("ISSUE_CRITICAL_AMOUNT", def.CriticalAmount),
		WarningDays:    config.IntFromEnv("ISSUE_WARNING_DAYS", def.WarningDays),
		WarningAmount:  utils.EnvDecimalDefault("ISSUE_WARNING_AMOUNT", def.WarningAmount),
	}
}

// classifySeverity walks the threshold table most-severe-first.
func classifySeverity(th issueThresholds, amountOwed decimal.Decimal, daysOverdue int) models.IssueSeverity {
	if daysOverdue >= th.CriticalDays || amountOwed.GreaterThanOrEqual(th.CriticalAmount) {
		return models.IssueSeverityCritical
	}
	if daysOverdue >= th.WarningDays || amountOwed.GreaterThanOrEqual(th.WarningAmount) {
		return models.IssueSeverityWarning
	}
	return models.IssueSeverityInfo
}

// maybeRaiseIssue opens a PaymentIssue for (patient, source record)
// unless one is already open; re-syncing a still-outstanding record is a
// no-op. fixedSeverity overrides the threshold table (payment declines
// are always warning). Warning and critical issues escalate the patient
// to the payment-research hold; info issues are recorded only.
func (w *syncWorker) maybeRaiseIssue(ctx context.Context, store syncStore, patientID int, sourceRecordID string, issueType models.PaymentIssueType, amountOwed decimal.Decimal, daysOverdue int, fixedSeverity *models.IssueSeverity) (*models.PaymentIssue, error) {
	existing, err := store.FindOpenIssue(ctx, patientID, sourceRecordID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	severity := classifySeverity(w.thresholds, amountOwed, daysOverdue)
	if fixedSeverity != nil {
		severity = *fixedSeverity
	}

	prevStatus, err := store.PatientStatus(ctx, patientID)
	if err != nil {
		return nil, err
	}

	issue := &models.PaymentIssue{
		PatientId:         patientID,
		SourceRecordId:    sourceRecordID,
		IssueType:         issueType,
		Severity:          severity,
		AmountOwed:        amountOwed,
		DaysOverdue:       daysOverdue,
		PreviousStatusKey: prevStatus,
		AutoUpdated:       true,
	}
	if err := store.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}

	w.logger.WithFields(logrus.Fields{
		"patient_id":       patientID,
		"source_record_id": sourceRecordID,
		"issue_type":       issueType,
		"severity":         severity,
	}).Info("payment issue opened")

	if severity != models.IssueSeverityInfo {
		if err := w.escalateToHold(ctx, store, patientID); err != nil {
			return nil, err
		}
	}
	return issue, nil
}
