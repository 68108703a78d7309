// Package money formats minor-unit amounts for human-readable output on
// financial documents. Arithmetic stays in int64 minor units everywhere;
// this package is display only.
package money

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BritishEnglish)

// Format renders a minor-unit amount with its currency symbol, e.g.
// Format(3500, "GBP") == "£35.00". Unknown currency codes fall back to
// the bare code prefix.
func Format(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %d", code, minor)
	}
	scale, _ := currency.Cash.Rounding(unit)
	major := float64(minor) / math.Pow10(scale)
	return printer.Sprintf("%v", currency.NarrowSymbol(unit.Amount(major)))
}
