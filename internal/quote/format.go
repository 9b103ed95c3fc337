package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundredPercent = decimal.NewFromInt(100)

// pounds formats an amount as sterling with thousands separators, e.g. £27,840.00.
func pounds(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "£" + b.String() + "." + frac
}
