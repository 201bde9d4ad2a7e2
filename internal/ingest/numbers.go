package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// cleanNumber keeps digits, dots and minus signs, then parses what is left.
// Anything unparseable is 0.
func cleanNumber(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func cleanInt(s string) int {
	return max0(int(cleanNumber(s)))
}

// cleanPercent parses "10%" or "10.5 %" as 10 and 10.5.
func cleanPercent(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return cleanNumber(s)
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
