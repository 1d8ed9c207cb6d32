// Package money renders prices and counts the way the storefront shows
// them: Indonesian Rupiah without minor units, and compact "rb" counts.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// IDR formats an amount as "Rp 1.250.000", rounded to whole rupiah.
func IDR(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	neg := rounded.IsNegative()
	digits := printer.Sprintf("%d", rounded.Abs().IntPart())

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("Rp ")
	b.WriteString(digits)
	return b.String()
}

// Compact shortens counts of a thousand or more to one decimal place with
// the "rb" (ribu) suffix: 1250 -> "1,3rb".
func Compact(n int) string {
	if n < 1000 {
		return printer.Sprintf("%d", n)
	}
	k := decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(1000)).StringFixed(1)
	return strings.Replace(k, ".", ",", 1) + "rb"
}
