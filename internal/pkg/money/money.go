// Package money formats exact decimal amounts for display. Amounts are rounded here and only here.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of decimal places shown for USD.
const Places = 2

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// String renders d with exactly two decimals and no grouping, e.g. "4745.00".
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// USD renders d as "$1,234.56"; negative amounts render as "-$1,234.56".
func USD(d decimal.Decimal) string {
	r := Round(d)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Abs()
	}

	whole := r.Truncate(0)
	cents := r.Sub(whole).Shift(Places).IntPart()

	p := message.NewPrinter(language.AmericanEnglish)
	return fmt.Sprintf("%s$%s.%02d", sign, p.Sprintf("%d", whole.IntPart()), cents)
}
