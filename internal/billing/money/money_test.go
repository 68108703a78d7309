package money

import (
	"strings"
	"testing"
)

func TestFormatCarriesDecimalValue(t *testing.T) {
	got := Format(3500, "GBP")
	if !strings.Contains(got, "35.00") {
		t.Fatalf("expected 35.00 in %q", got)
	}
}

func TestFormatNegativeAmount(t *testing.T) {
	got := Format(-20000, "GBP")
	if !strings.Contains(got, "200.00") || !strings.Contains(got, "-") {
		t.Fatalf("expected negative 200.00 in %q", got)
	}
}

func TestFormatUnknownCurrency(t *testing.T) {
	got := Format(1234, "???")
	if !strings.Contains(got, "1234") {
		t.Fatalf("expected raw minor units in %q", got)
	}
}
