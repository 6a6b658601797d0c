package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("FLAG_A", "yes")
	t.Setenv("FLAG_B", "0")
	t.Setenv("FLAG_C", "maybe")

	if !EnvBoolDefault("FLAG_A", false) {
		t.Error("yes should be true")
	}
	if EnvBoolDefault("FLAG_B", true) {
		t.Error("0 should be false")
	}
	if !EnvBoolDefault("FLAG_C", true) {
		t.Error("unparseable should keep the default")
	}
	if EnvBoolDefault("FLAG_UNSET", false) {
		t.Error("unset should keep the default")
	}
}

func TestEnvDecimalDefault(t *testing.T) {
	t.Setenv("DEC_A", "123.45")
	t.Setenv("DEC_B", "abc")

	def := decimal.NewFromInt(7)
	if got := EnvDecimalDefault("DEC_A", def); !got.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("got %s", got)
	}
	if got := EnvDecimalDefault("DEC_B", def); !got.Equal(def) {
		t.Errorf("unparseable should keep the default, got %s", got)
	}
	if got := EnvDecimalDefault("DEC_UNSET", def); !got.Equal(def) {
		t.Errorf("unset should keep the default, got %s", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" a, b ,, c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v", got)
		}
	}
	if SplitAndTrim("  ") != nil {
		t.Error("blank input should yield nil")
	}
}
