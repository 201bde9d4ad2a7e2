package models

import "time"

// DateLayout is the calendar-day format used by every record.
const DateLayout = "2006-01-02"

type BusinessRecord struct {
	Date                  string  `json:"date"`
	SKU                   string  `json:"sku"`
	ParentASIN            string  `json:"parent_asin,omitempty"`
	Title                 string  `json:"title,omitempty"`
	Sessions              int     `json:"sessions"`
	UnitsOrdered          int     `json:"units_ordered"`
	Sales                 float64 `json:"sales"`
	ConversionRatePercent float64 `json:"conversion_rate_percent"`
}

// Match types recognised in Search Term Reports.
const (
	MatchBroad   = "Broad"
	MatchPhrase  = "Phrase"
	MatchExact   = "Exact"
	MatchAuto    = "Auto"
	MatchUnknown = "Unknown"
)

// SearchTermRecord has no SKU; PPC figures reach SKUs only through proportional allocation.
type SearchTermRecord struct {
	Date        string  `json:"date"`
	Campaign    string  `json:"campaign"`
	AdGroup     string  `json:"ad_group"`
	SearchTerm  string  `json:"search_term"`
	MatchType   string  `json:"match_type"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Orders      int     `json:"orders"`
}

type CostEntry struct {
	SKU         string    `json:"sku"`
	SalePrice   float64   `json:"sale_price"`
	AmazonFees  float64   `json:"amazon_fees"`
	COGS        float64   `json:"cogs"`
	LastUpdated time.Time `json:"last_updated"`
}

// ParseResult is what both report parsers hand back. Success means no row
// errors and at least one record.
type ParseResult[T any] struct {
	Data    []T      `json:"data"`
	Errors  []string `json:"errors"`
	Success bool     `json:"success"`
}

// Finish sets Success from the collected data and errors.
func (p *ParseResult[T]) Finish() {
	if p.Data == nil {
		p.Data = []T{}
	}
	if p.Errors == nil {
		p.Errors = []string{}
	}
	p.Success = len(p.Errors) == 0 && len(p.Data) > 0
}

// Fail returns a result carrying a single file-level error and no data.
func Fail[T any](msg string) ParseResult[T] {
	return ParseResult[T]{Data: []T{}, Errors: []string{msg}, Success: false}
}

type SKUMetrics struct {
	SKU                   string  `json:"sku"`
	ParentASIN            string  `json:"parent_asin,omitempty"`
	Title                 string  `json:"title,omitempty"`
	Sessions              int     `json:"sessions"`
	UnitsOrdered          int     `json:"units_ordered"`
	Sales                 float64 `json:"sales"`
	ConversionRatePercent float64 `json:"conversion_rate_percent"`
	SalesShare            float64 `json:"sales_share"`
	AllocatedPPCSales     float64 `json:"allocated_ppc_sales"`
	AllocatedPPCSpend     float64 `json:"allocated_ppc_spend"`
	OrganicSales          float64 `json:"organic_sales"`
	ACoS                  float64 `json:"acos"`
	HasCosts              bool    `json:"has_costs"`
	ProfitPerUnit         float64 `json:"profit_per_unit"`
	CostPerConversion     float64 `json:"cost_per_conversion"`
	NetProfitPerUnit      float64 `json:"net_profit_per_unit"`
	TotalNetProfit        float64 `json:"total_net_profit"`
}

// AdMetrics is the shared shape of campaign, search term and match type rows.
type AdMetrics struct {
	Campaign    string  `json:"campaign,omitempty"`
	AdGroup     string  `json:"ad_group,omitempty"`
	SearchTerm  string  `json:"search_term,omitempty"`
	MatchType   string  `json:"match_type,omitempty"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Orders      int     `json:"orders"`
	ACoS        float64 `json:"acos"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	CVR         float64 `json:"cvr"`
	CPC         float64 `json:"cpc"`
}

type DailyMetrics struct {
	Date         string  `json:"date"`
	Sessions     int     `json:"sessions"`
	UnitsOrdered int     `json:"units_ordered"`
	TotalSales   float64 `json:"total_sales"`
	PPCSales     float64 `json:"ppc_sales"`
	PPCSpend     float64 `json:"ppc_spend"`
	OrganicSales float64 `json:"organic_sales"`
	ACoS         float64 `json:"acos"`
}

type Summary struct {
	Sessions       int     `json:"sessions"`
	UnitsOrdered   int     `json:"units_ordered"`
	TotalSales     float64 `json:"total_sales"`
	PPCSales       float64 `json:"ppc_sales"`
	PPCSpend       float64 `json:"ppc_spend"`
	OrganicSales   float64 `json:"organic_sales"`
	Impressions    int     `json:"impressions"`
	Clicks         int     `json:"clicks"`
	Orders         int     `json:"orders"`
	ACoS           float64 `json:"acos"`
	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	CVR            float64 `json:"cvr"`
	TACoS          float64 `json:"tacos"`
	TotalNetProfit float64 `json:"total_net_profit"`
	SKUCount       int     `json:"sku_count"`
	CampaignCount  int     `json:"campaign_count"`
}
