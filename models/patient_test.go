package models

import "testing"

func TestHoldEligible(t *testing.T) {
	cases := []struct {
		status PatientStatusKey
		want   bool
	}{
		{PatientStatusActive, true},
		{PatientStatusInactive, false},
		{PatientStatusHoldPaymentResearch, false},
		{"hold_insurance_review", false},
		{"hold_clinical", false},
		{"prospective", true},
		{"discharged", true},
		{"", true},
	}
	for _, tc := range cases {
		if got := HoldEligible(tc.status); got != tc.want {
			t.Errorf("HoldEligible(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
