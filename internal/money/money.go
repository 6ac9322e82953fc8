// Package money holds the presentation/storage boundary for currency
// values. Core amortization math stays on float64; amounts cross into
// decimal only when rounded for storage or formatted for display.
package money

import (
	"github.com/shopspring/decimal"
)

// Round rounds a dollar amount to cents using half-up banker-free
// rounding, matching what schedule entries store.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatCAD renders an amount as a CAD display string with thousands
// separators, e.g. 1234.5 -> "$1,234.50". Negative amounts keep the
// sign ahead of the dollar symbol.
func FormatCAD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	if neg {
		d = d.Neg()
	}

	s := d.StringFixed(2)
	intPart := s[:len(s)-3]
	frac := s[len(s)-3:]

	var grouped []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, c)
	}

	out := "$" + string(grouped) + frac
	if neg {
		out = "-" + out
	}
	return out
}
