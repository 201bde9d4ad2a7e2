// Package dates turns report date cells into YYYY-MM-DD strings.
package dates

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

// excelEpoch is day zero of the 1900 date system once Excel's phantom
// 1900-02-29 is accounted for; valid for serials above 60.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31, the last day Excel can represent.
const maxSerial = 2958465

// layouts tried before the split heuristic. Slash forms are month first.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 02, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// Normalize converts a raw cell into a calendar day. It returns "" when the
// value cannot be understood.
func Normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f > 59 {
			return FromSerial(f)
		}
		return ""
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, v); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return splitParts(v)
}

// FromSerial converts an Excel 1900-system serial. The fractional time of
// day is dropped.
func FromSerial(serial float64) string {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 || serial >= maxSerial+1 {
		return ""
	}
	days := int(math.Floor(serial))
	return excelEpoch.AddDate(0, 0, days).Format(models.DateLayout)
}

func splitParts(v string) string {
	if i := strings.IndexAny(v, " T"); i > 0 {
		v = v[:i]
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return ""
	}
	n := make([]int, 3)
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || x < 0 {
			return ""
		}
		n[i] = x
	}

	var y, m, d int
	switch {
	case n[0] > 1900:
		y, m, d = n[0], n[1], n[2]
	case n[2] > 1900:
		m, d, y = n[0], n[1], n[2]
	case n[1] > 1900:
		m, y, d = n[0], n[1], n[2]
	default:
		// month-day-year with a short year
		m, d, y = n[0], n[1], n[2]
		if y < 100 {
			y += 2000
		}
	}
	if m > 12 && d <= 12 {
		m, d = d, m
	}
	return build(y, m, d)
}

func build(y, m, d int) string {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return ""
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return ""
	}
	return t.Format(models.DateLayout)
}
