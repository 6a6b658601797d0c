package billingsync

import (
	"context"

	"github.com/meridianmed/clinicops_backend/models"
	"github.com/sirupsen/logrus"
)

// escalateToHold moves a patient to hold_payment_research. The store's
// guarded update enforces monotonicity: patients already on any hold, or
// inactive, are left untouched. Clearing a hold is a manual action owned
// by the resolution tooling; the sync core never downgrades status.
func (w *syncWorker) escalateToHold(ctx context.Context, store syncStore, patientID int) error {
	changed, err := store.EscalatePatientHold(ctx, patientID)
	if err != nil {
		return err
	}
	if changed {
		w.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"status_key": models.PatientStatusHoldPaymentResearch,
		}).Warn("patient escalated to payment hold")
	}
	return nil
}
