package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/amazon-ppc-etl/internal/columns"
	"github.com/AngelCh415/amazon-ppc-etl/internal/dates"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

const (
	colDate        = "date"
	colCampaign    = "campaign"
	colAdGroup     = "ad group"
	colSearchTerm  = "search term"
	colMatchType   = "match type"
	colImpressions = "impressions"
	colClicks      = "clicks"
	colSpend       = "spend"
	colSTSales     = "sales"
	colOrders      = "orders"
)

// SearchTermFields lists the header tokens for each Search Term Report
// column. A header matches when it contains the token.
var SearchTermFields = []columns.Field{
	{Name: colDate, Synonyms: []string{"date"}},
	{Name: colCampaign, Synonyms: []string{"campaign name", "campaign"}},
	{Name: colAdGroup, Synonyms: []string{"ad group name", "ad group"}},
	{Name: colSearchTerm, Synonyms: []string{"customer search term", "search term"}},
	{Name: colMatchType, Synonyms: []string{"match type"}},
	{Name: colImpressions, Synonyms: []string{"impressions"}},
	{Name: colClicks, Synonyms: []string{"clicks"}},
	{Name: colSpend, Synonyms: []string{"spend"}},
	{Name: colSTSales, Synonyms: []string{"7 day total sales", "total sales", "sales"}},
	{Name: colOrders, Synonyms: []string{"7 day total orders", "total orders", "orders"}},
}

// Fallbacks for blank text cells.
const (
	UnknownCampaign   = "Unknown Campaign"
	UnknownAdGroup    = "Unknown Ad Group"
	UnknownSearchTerm = "Unknown Search Term"
)

type searchTermRow struct {
	date                                      string
	campaign, adGroup, searchTerm, matchType  string
	impressions, clicks, spend, sales, orders string
}

// ParseSearchTermReport decodes the first sheet of a spreadsheet Search Term
// Report. Row 0 is the header.
func ParseSearchTermReport(r io.Reader) models.ParseResult[models.SearchTermRecord] {
	grid, err := readFirstSheet(r)
	if err != nil {
		return models.Fail[models.SearchTermRecord](fmt.Sprintf("Failed to read search term report: %v", err))
	}
	return parseSearchTermGrid(grid)
}

func parseSearchTermGrid(grid [][]string) models.ParseResult[models.SearchTermRecord] {
	if len(grid) == 0 {
		return models.Fail[models.SearchTermRecord]("Search term report is empty")
	}
	m, err := columns.ResolveLoose(grid[0], SearchTermFields)
	if err != nil {
		return models.Fail[models.SearchTermRecord](err.Error())
	}

	var res models.ParseResult[models.SearchTermRecord]
	for i, row := range grid[1:] {
		if blankRow(row) {
			continue
		}
		line := i + 2
		sr := searchTermRow{
			date:        m.Cell(row, colDate),
			campaign:    m.Cell(row, colCampaign),
			adGroup:     m.Cell(row, colAdGroup),
			searchTerm:  m.Cell(row, colSearchTerm),
			matchType:   m.Cell(row, colMatchType),
			impressions: m.Cell(row, colImpressions),
			clicks:      m.Cell(row, colClicks),
			spend:       m.Cell(row, colSpend),
			sales:       m.Cell(row, colSTSales),
			orders:      m.Cell(row, colOrders),
		}
		day := dates.Normalize(sr.date)
		if day == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: invalid or missing date %q", line, sr.date))
			continue
		}
		res.Data = append(res.Data, models.SearchTermRecord{
			Date:        day,
			Campaign:    coalesce(sr.campaign, UnknownCampaign),
			AdGroup:     coalesce(sr.adGroup, UnknownAdGroup),
			SearchTerm:  coalesce(sr.searchTerm, UnknownSearchTerm),
			MatchType:   NormalizeMatchType(sr.matchType),
			Impressions: cleanInt(sr.impressions),
			Clicks:      cleanInt(sr.clicks),
			Spend:       maxf(cleanNumber(sr.spend)),
			Sales:       maxf(cleanNumber(sr.sales)),
			Orders:      cleanInt(sr.orders),
		})
	}
	res.Finish()
	return res
}

// NormalizeMatchType maps the report's match type text onto one of the
// models.Match* values.
func NormalizeMatchType(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return models.MatchUnknown
	case strings.Contains(v, "broad"):
		return models.MatchBroad
	case strings.Contains(v, "phrase"):
		return models.MatchPhrase
	case strings.Contains(v, "exact"):
		return models.MatchExact
	case strings.Contains(v, "auto"), v == "-", v == "*":
		return models.MatchAuto
	}
	return models.MatchUnknown
}

// readFirstSheet returns raw cell values so date cells stay Excel serials.
func readFirstSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}
