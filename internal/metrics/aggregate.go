package metrics

import (
	"sort"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

// Totals of PPC activity across a set of search term records.
type ppcTotals struct {
	impressions, clicks, orders int
	spend, sales                float64
}

func sumTerms(terms []models.SearchTermRecord) ppcTotals {
	var t ppcTotals
	for _, r := range terms {
		t.impressions += r.Impressions
		t.clicks += r.Clicks
		t.orders += r.Orders
		t.spend += r.Spend
		t.sales += r.Sales
	}
	return t
}

type skuAcc struct {
	first      models.BusinessRecord
	sessions   int
	units      int
	sales      float64
	crWeighted float64
	crSum      float64
	n          int
}

// BuildSKUMetrics rolls business records up per SKU and attributes PPC
// activity to each SKU by revenue share.
func BuildSKUMetrics(business []models.BusinessRecord, terms []models.SearchTermRecord, costs map[string]models.CostEntry) []models.SKUMetrics {
	accs := map[string]*skuAcc{}
	var order []string
	var allSales float64
	for _, b := range business {
		a, ok := accs[b.SKU]
		if !ok {
			a = &skuAcc{first: b}
			accs[b.SKU] = a
			order = append(order, b.SKU)
		}
		a.sessions += b.Sessions
		a.units += b.UnitsOrdered
		a.sales += b.Sales
		a.crWeighted += b.ConversionRatePercent * float64(b.Sessions)
		a.crSum += b.ConversionRatePercent
		a.n++
		allSales += b.Sales
	}
	ppc := sumTerms(terms)

	out := make([]models.SKUMetrics, 0, len(order))
	for _, sku := range order {
		a := accs[sku]
		alloc := Allocate(a.sales, allSales, ppc.sales, ppc.spend)
		cost, hasCost := costs[sku]
		hasCost = hasCost && (cost.SalePrice > 0 || cost.AmazonFees > 0 || cost.COGS > 0)

		ppu := ProfitPerUnit(cost.SalePrice, cost.AmazonFees, cost.COGS)
		cpc := CostPerConversion(alloc.PPCSpend, a.units)
		net := NetProfitPerUnit(ppu, cpc)

		out = append(out, models.SKUMetrics{
			SKU:                   sku,
			ParentASIN:            a.first.ParentASIN,
			Title:                 a.first.Title,
			Sessions:              a.sessions,
			UnitsOrdered:          a.units,
			Sales:                 round2(a.sales),
			ConversionRatePercent: round2(a.conversionRate()),
			SalesShare:            round4(alloc.SalesShare),
			AllocatedPPCSales:     round2(alloc.PPCSales),
			AllocatedPPCSpend:     round2(alloc.PPCSpend),
			OrganicSales:          round2(OrganicSales(a.sales, alloc.PPCSales)),
			ACoS:                  round2(ACoS(alloc.PPCSpend, alloc.PPCSales)),
			HasCosts:              hasCost,
			ProfitPerUnit:         round2(ppu),
			CostPerConversion:     round2(cpc),
			NetProfitPerUnit:      round2(net),
			TotalNetProfit:        round2(net * float64(a.units)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sales != out[j].Sales {
			return out[i].Sales > out[j].Sales
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// conversionRate is the session-weighted mean of the reported rates, or the
// plain mean when no sessions were recorded.
func (a *skuAcc) conversionRate() float64 {
	if a.sessions > 0 {
		return a.crWeighted / float64(a.sessions)
	}
	if a.n > 0 {
		return a.crSum / float64(a.n)
	}
	return 0
}

type adKey struct {
	campaign, adGroup, searchTerm, matchType string
}

func buildAd(terms []models.SearchTermRecord, key func(models.SearchTermRecord) adKey) []models.AdMetrics {
	accs := map[adKey]*ppcTotals{}
	var order []adKey
	for _, r := range terms {
		k := key(r)
		a, ok := accs[k]
		if !ok {
			a = &ppcTotals{}
			accs[k] = a
			order = append(order, k)
		}
		a.impressions += r.Impressions
		a.clicks += r.Clicks
		a.orders += r.Orders
		a.spend += r.Spend
		a.sales += r.Sales
	}
	out := make([]models.AdMetrics, 0, len(order))
	for _, k := range order {
		out = append(out, adRow(k, *accs[k]))
	}
	return out
}

func adRow(k adKey, t ppcTotals) models.AdMetrics {
	return models.AdMetrics{
		Campaign:    k.campaign,
		AdGroup:     k.adGroup,
		SearchTerm:  k.searchTerm,
		MatchType:   k.matchType,
		Impressions: t.impressions,
		Clicks:      t.clicks,
		Spend:       round2(t.spend),
		Sales:       round2(t.sales),
		Orders:      t.orders,
		ACoS:        round2(ACoS(t.spend, t.sales)),
		ROAS:        round2(ROAS(t.sales, t.spend)),
		CTR:         round2(CTR(t.clicks, t.impressions)),
		CVR:         round2(CVR(t.orders, t.clicks)),
		CPC:         round2(CPC(t.spend, t.clicks)),
	}
}

func bySpend(rows []models.AdMetrics, tie func(a, b models.AdMetrics) bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Spend != rows[j].Spend {
			return rows[i].Spend > rows[j].Spend
		}
		return tie(rows[i], rows[j])
	})
}

// BuildCampaignMetrics groups search term records by campaign, highest
// spend first.
func BuildCampaignMetrics(terms []models.SearchTermRecord) []models.AdMetrics {
	rows := buildAd(terms, func(r models.SearchTermRecord) adKey { return adKey{campaign: r.Campaign} })
	bySpend(rows, func(a, b models.AdMetrics) bool { return a.Campaign < b.Campaign })
	return rows
}

// BuildSearchTermMetrics groups by campaign, ad group, search term and match type.
func BuildSearchTermMetrics(terms []models.SearchTermRecord) []models.AdMetrics {
	rows := buildAd(terms, func(r models.SearchTermRecord) adKey {
		return adKey{campaign: r.Campaign, adGroup: r.AdGroup, searchTerm: r.SearchTerm, matchType: r.MatchType}
	})
	bySpend(rows, func(a, b models.AdMetrics) bool {
		if a.Campaign != b.Campaign {
			return a.Campaign < b.Campaign
		}
		if a.AdGroup != b.AdGroup {
			return a.AdGroup < b.AdGroup
		}
		if a.SearchTerm != b.SearchTerm {
			return a.SearchTerm < b.SearchTerm
		}
		return a.MatchType < b.MatchType
	})
	return rows
}

var matchTypeOrder = map[string]int{
	models.MatchExact:   0,
	models.MatchPhrase:  1,
	models.MatchBroad:   2,
	models.MatchAuto:    3,
	models.MatchUnknown: 4,
}

// BuildMatchTypeMetrics groups by match type in Exact, Phrase, Broad, Auto,
// Unknown order.
func BuildMatchTypeMetrics(terms []models.SearchTermRecord) []models.AdMetrics {
	rows := buildAd(terms, func(r models.SearchTermRecord) adKey { return adKey{matchType: r.MatchType} })
	sort.SliceStable(rows, func(i, j int) bool {
		oi, iok := matchTypeOrder[rows[i].MatchType]
		oj, jok := matchTypeOrder[rows[j].MatchType]
		if !iok {
			oi = len(matchTypeOrder)
		}
		if !jok {
			oj = len(matchTypeOrder)
		}
		if oi != oj {
			return oi < oj
		}
		return rows[i].MatchType < rows[j].MatchType
	})
	return rows
}

// BuildDailyMetrics joins business and PPC totals per calendar day.
func BuildDailyMetrics(business []models.BusinessRecord, terms []models.SearchTermRecord) []models.DailyMetrics {
	days := map[string]*models.DailyMetrics{}
	get := func(d string) *models.DailyMetrics {
		m, ok := days[d]
		if !ok {
			m = &models.DailyMetrics{Date: d}
			days[d] = m
		}
		return m
	}
	for _, b := range business {
		m := get(b.Date)
		m.Sessions += b.Sessions
		m.UnitsOrdered += b.UnitsOrdered
		m.TotalSales += b.Sales
	}
	for _, t := range terms {
		m := get(t.Date)
		m.PPCSales += t.Sales
		m.PPCSpend += t.Spend
	}

	out := make([]models.DailyMetrics, 0, len(days))
	for _, m := range days {
		out = append(out, models.DailyMetrics{
			Date:         m.Date,
			Sessions:     m.Sessions,
			UnitsOrdered: m.UnitsOrdered,
			TotalSales:   round2(m.TotalSales),
			PPCSales:     round2(m.PPCSales),
			PPCSpend:     round2(m.PPCSpend),
			OrganicSales: round2(OrganicSales(m.TotalSales, m.PPCSales)),
			ACoS:         round2(ACoS(m.PPCSpend, m.PPCSales)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// BuildSummary computes account-level totals. Net profit only counts SKUs
// that have cost data.
func BuildSummary(business []models.BusinessRecord, terms []models.SearchTermRecord, costs map[string]models.CostEntry) models.Summary {
	ppc := sumTerms(terms)
	var s models.Summary
	var sales float64
	for _, b := range business {
		s.Sessions += b.Sessions
		s.UnitsOrdered += b.UnitsOrdered
		sales += b.Sales
	}
	var net float64
	skus := BuildSKUMetrics(business, terms, costs)
	for _, m := range skus {
		if m.HasCosts {
			net += m.TotalNetProfit
		}
	}
	campaigns := map[string]struct{}{}
	for _, t := range terms {
		campaigns[t.Campaign] = struct{}{}
	}

	s.TotalSales = round2(sales)
	s.PPCSales = round2(ppc.sales)
	s.PPCSpend = round2(ppc.spend)
	s.OrganicSales = round2(OrganicSales(sales, ppc.sales))
	s.Impressions = ppc.impressions
	s.Clicks = ppc.clicks
	s.Orders = ppc.orders
	s.ACoS = round2(ACoS(ppc.spend, ppc.sales))
	s.ROAS = round2(ROAS(ppc.sales, ppc.spend))
	s.CTR = round2(CTR(ppc.clicks, ppc.impressions))
	s.CVR = round2(CVR(ppc.orders, ppc.clicks))
	s.TACoS = round2(TACoS(ppc.spend, sales))
	s.TotalNetProfit = round2(net)
	s.SKUCount = len(skus)
	s.CampaignCount = len(campaigns)
	return s
}
