// Package format renders aggregated numbers for KPI cards: currency
// with thousands separators and two decimals, percentages with two
// decimals, and plain thousands-separated counts. Missing values (NaN)
// render as a dash instead of a number.
package format

import (
	"math"
	"strconv"
	"strings"
)

// Missing is what a missing numeric value renders as.
const Missing = "—"

// Currency formats a value as Brazilian reais, e.g. "R$ 1,234,567.89".
func Currency(v float64) string {
	if math.IsNaN(v) {
		return Missing
	}
	return "R$ " + decimal(v, 2)
}

// Percent formats a ratio already scaled to percent, e.g. "46.67%".
func Percent(v float64) string {
	if math.IsNaN(v) {
		return Missing
	}
	return decimal(v, 2) + "%"
}

// Count formats an integer with thousands separators, e.g. "12,345".
func Count(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := groupThousands(strconv.Itoa(n))
	if neg {
		return "-" + s
	}
	return s
}

func decimal(v float64, places int) string {
	s := strconv.FormatFloat(v, 'f', places, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	out := groupThousands(intPart)
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
