package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/AngelCh415/amazon-ppc-etl/internal/columns"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

// Canonical Business Report fields in resolution order.
const (
	colSKU            = "sku"
	colParentASIN     = "parentAsin"
	colTitle          = "title"
	colSessions       = "sessions"
	colUnitsOrdered   = "unitsOrdered"
	colSales          = "sales"
	colConversionRate = "conversionRate"
)

// BusinessFields is the synonym table for Business Report headers.
var BusinessFields = []columns.Field{
	{Name: colSKU, Synonyms: []string{"sku", "child asin", "asin"}},
	{Name: colParentASIN, Synonyms: []string{"parent asin", "parent"}, Optional: true},
	{Name: colTitle, Synonyms: []string{"title", "product name", "product title", "name"}, Optional: true},
	{Name: colSessions, Synonyms: []string{"sessions", "sessions - total", "session count", "total sessions"}},
	{Name: colUnitsOrdered, Synonyms: []string{"units ordered", "units sold", "quantity sold", "ordered units"}},
	{Name: colSales, Synonyms: []string{"sales", "ordered product sales", "revenue", "total sales", "product sales"}, Fallback: "sales"},
	{Name: colConversionRate, Synonyms: []string{"conversion rate", "unit session percentage", "cvr", "conversion %", "unit session %"}},
}

// businessRow is a report line after column resolution, still as text.
type businessRow struct {
	sku, parentASIN, title                 string
	sessions, units, sales, conversionRate string
}

// ParseBusinessReport reads a delimited Business Report. Every record gets
// reportDate since the report has no date column of its own.
func ParseBusinessReport(r io.Reader, reportDate string) models.ParseResult[models.BusinessRecord] {
	header, rows, err := readDelimited(r)
	if err != nil {
		return models.Fail[models.BusinessRecord](fmt.Sprintf("Failed to read business report: %v", err))
	}
	if len(header) == 0 {
		return models.Fail[models.BusinessRecord]("Business report is empty")
	}

	m, err := columns.Resolve(header, BusinessFields)
	if err != nil {
		return models.Fail[models.BusinessRecord](err.Error())
	}

	var res models.ParseResult[models.BusinessRecord]
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		line := i + 2 // header is line 1
		br := businessRow{
			sku:            m.Cell(row, colSKU),
			parentASIN:     m.Cell(row, colParentASIN),
			title:          m.Cell(row, colTitle),
			sessions:       m.Cell(row, colSessions),
			units:          m.Cell(row, colUnitsOrdered),
			sales:          m.Cell(row, colSales),
			conversionRate: m.Cell(row, colConversionRate),
		}
		if br.sku == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: missing SKU", line))
			continue
		}
		res.Data = append(res.Data, br.record(reportDate))
	}
	res.Finish()
	return res
}

func (b businessRow) record(date string) models.BusinessRecord {
	return models.BusinessRecord{
		Date:                  date,
		SKU:                   b.sku,
		ParentASIN:            b.parentASIN,
		Title:                 b.title,
		Sessions:              cleanInt(b.sessions),
		UnitsOrdered:          cleanInt(b.units),
		Sales:                 maxf(cleanNumber(b.sales)),
		ConversionRatePercent: cleanPercent(b.conversionRate),
	}
}

// readDelimited splits r into a header and data rows. The delimiter is
// sniffed from the first line: tab, semicolon or comma.
func readDelimited(r io.Reader) ([]string, [][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		first = text[:i]
	}
	best, n := ',', strings.Count(first, ",")
	for _, d := range []rune{'\t', ';'} {
		if c := strings.Count(first, string(d)); c > n {
			best, n = d, c
		}
	}
	return best
}
