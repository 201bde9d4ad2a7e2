package ingest

import (
	"sort"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

// NeedsReconcile reports whether business records carry a single export
// date while the search term records span several days.
func NeedsReconcile(business []models.BusinessRecord, terms []models.SearchTermRecord) bool {
	return len(distinctBusinessDates(business)) == 1 && len(DistinctDates(terms)) > 1
}

// ReconcileDates spreads single-dated business records across the sorted
// search term dates, record i taking date[i mod N]. When the trigger does not
// hold the input is returned as a copy, unchanged. The second return value
// says whether dates were reassigned.
//
// This is a heuristic: when the record count does not divide evenly the
// wrap-around gives some dates more rows than others.
func ReconcileDates(business []models.BusinessRecord, terms []models.SearchTermRecord) ([]models.BusinessRecord, bool) {
	out := make([]models.BusinessRecord, len(business))
	copy(out, business)
	if !NeedsReconcile(business, terms) {
		return out, false
	}
	days := DistinctDates(terms)
	for i := range out {
		out[i].Date = days[i%len(days)]
	}
	return out, true
}

// DistinctDates returns the sorted set of dates in terms.
func DistinctDates(terms []models.SearchTermRecord) []string {
	set := map[string]struct{}{}
	for _, t := range terms {
		set[t.Date] = struct{}{}
	}
	return sortedKeys(set)
}

func distinctBusinessDates(business []models.BusinessRecord) []string {
	set := map[string]struct{}{}
	for _, b := range business {
		set[b.Date] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
