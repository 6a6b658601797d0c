package models

import (
	"log"

	"github.com/meridianmed/clinicops_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Patient{},
		&PatientBillingMapping{},
		&BillingInvoiceRecord{}, &RecurringChargeRecord{}, &BillingPaymentRecord{},
		&PaymentIssue{},
		&BillingSyncRun{}, &BillingSyncError{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
