package metrics

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/amazon-ppc-etl/internal/ledger"
	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
	"github.com/AngelCh415/amazon-ppc-etl/internal/store"
)

func fixture() ([]models.BusinessRecord, []models.SearchTermRecord) {
	business := []models.BusinessRecord{
		{Date: "2024-01-01", SKU: "A", Sessions: 100, UnitsOrdered: 10, Sales: 300, ConversionRatePercent: 10},
		{Date: "2024-01-02", SKU: "B", Sessions: 50, UnitsOrdered: 5, Sales: 100, ConversionRatePercent: 10},
		{Date: "2024-01-02", SKU: "A", Sessions: 100, UnitsOrdered: 10, Sales: 300, ConversionRatePercent: 10},
	}
	terms := []models.SearchTermRecord{
		{Date: "2024-01-01", Campaign: "C1", AdGroup: "G1", SearchTerm: "mug", MatchType: models.MatchExact, Impressions: 1000, Clicks: 50, Spend: 20, Sales: 80, Orders: 4},
		{Date: "2024-01-02", Campaign: "C1", AdGroup: "G1", SearchTerm: "mug", MatchType: models.MatchExact, Impressions: 1000, Clicks: 50, Spend: 20, Sales: 80, Orders: 4},
		{Date: "2024-01-02", Campaign: "C2", AdGroup: "G9", SearchTerm: "cup", MatchType: models.MatchBroad, Impressions: 500, Clicks: 0, Spend: 0, Sales: 0, Orders: 0},
	}
	return business, terms
}

func TestBuildSKUMetrics_ProportionalAllocation(t *testing.T) {
	business, terms := fixture()
	costs := map[string]models.CostEntry{
		"A": {SKU: "A", SalePrice: 30, AmazonFees: 9, COGS: 6},
		"B": {SKU: "B"},
	}

	rows := BuildSKUMetrics(business, terms, costs)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "A", a.SKU)
	assert.Equal(t, 200, a.Sessions)
	assert.Equal(t, 20, a.UnitsOrdered)
	assert.Equal(t, 600.0, a.Sales)
	// 600 of 700 total revenue
	assert.InDelta(t, 0.8571, a.SalesShare, 1e-9)
	assert.InDelta(t, 137.14, a.AllocatedPPCSales, 1e-9)
	assert.InDelta(t, 34.29, a.AllocatedPPCSpend, 1e-9)
	assert.InDelta(t, 462.86, a.OrganicSales, 1e-9)
	assert.Equal(t, 25.0, a.ACoS)
	assert.True(t, a.HasCosts)
	assert.Equal(t, 15.0, a.ProfitPerUnit)
	assert.InDelta(t, 1.71, a.CostPerConversion, 1e-9)
	assert.InDelta(t, 13.29, a.NetProfitPerUnit, 1e-9)
	assert.InDelta(t, 265.71, a.TotalNetProfit, 1e-9)

	b := rows[1]
	assert.Equal(t, "B", b.SKU)
	assert.False(t, b.HasCosts)
	assert.Equal(t, 10.0, b.ConversionRatePercent)
}

func TestBuildSKUMetrics_NoPPC(t *testing.T) {
	business, _ := fixture()
	rows := BuildSKUMetrics(business, nil, nil)
	for _, r := range rows {
		assert.Zero(t, r.AllocatedPPCSpend)
		assert.Zero(t, r.ACoS)
		assert.Equal(t, r.Sales, r.OrganicSales)
	}
}

func TestBuildSKUMetrics_ZeroRevenue(t *testing.T) {
	rows := BuildSKUMetrics([]models.BusinessRecord{{SKU: "Z", Date: "2024-01-01"}}, []models.SearchTermRecord{{Spend: 10, Sales: 5}}, nil)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].SalesShare)
	assert.Zero(t, rows[0].AllocatedPPCSpend)
}

func TestBuildCampaignMetrics(t *testing.T) {
	_, terms := fixture()
	rows := BuildCampaignMetrics(terms)
	require.Len(t, rows, 2)

	c1 := rows[0]
	assert.Equal(t, "C1", c1.Campaign)
	assert.Equal(t, 2000, c1.Impressions)
	assert.Equal(t, 100, c1.Clicks)
	assert.Equal(t, 40.0, c1.Spend)
	assert.Equal(t, 160.0, c1.Sales)
	assert.Equal(t, 25.0, c1.ACoS)
	assert.Equal(t, 4.0, c1.ROAS)
	assert.Equal(t, 5.0, c1.CTR)
	assert.Equal(t, 8.0, c1.CVR)
	assert.Equal(t, 0.4, c1.CPC)

	c2 := rows[1]
	assert.Equal(t, "C2", c2.Campaign)
	assert.Zero(t, c2.ACoS)
	assert.Zero(t, c2.ROAS)
	assert.Zero(t, c2.CVR)
}

func TestBuildMatchTypeMetrics_Order(t *testing.T) {
	_, terms := fixture()
	terms = append(terms, models.SearchTermRecord{MatchType: models.MatchAuto, Spend: 100})
	rows := BuildMatchTypeMetrics(terms)
	require.Len(t, rows, 3)
	assert.Equal(t, models.MatchExact, rows[0].MatchType)
	assert.Equal(t, models.MatchBroad, rows[1].MatchType)
	assert.Equal(t, models.MatchAuto, rows[2].MatchType)
}

func TestBuildSearchTermMetrics(t *testing.T) {
	_, terms := fixture()
	rows := BuildSearchTermMetrics(terms)
	require.Len(t, rows, 2)
	assert.Equal(t, "mug", rows[0].SearchTerm)
	assert.Equal(t, "G1", rows[0].AdGroup)
	assert.Equal(t, 8, rows[0].Orders)
}

func TestBuildDailyMetrics(t *testing.T) {
	business, terms := fixture()
	rows := BuildDailyMetrics(business, terms)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, 300.0, rows[0].TotalSales)
	assert.Equal(t, 80.0, rows[0].PPCSales)
	assert.Equal(t, 220.0, rows[0].OrganicSales)
	assert.Equal(t, 25.0, rows[0].ACoS)
	assert.Equal(t, 400.0, rows[1].TotalSales)
}

func TestBuildSummary(t *testing.T) {
	business, terms := fixture()
	costs := map[string]models.CostEntry{"A": {SKU: "A", SalePrice: 30, AmazonFees: 9, COGS: 6}}

	s := BuildSummary(business, terms, costs)
	assert.Equal(t, 250, s.Sessions)
	assert.Equal(t, 700.0, s.TotalSales)
	assert.Equal(t, 160.0, s.PPCSales)
	assert.Equal(t, 40.0, s.PPCSpend)
	assert.Equal(t, 540.0, s.OrganicSales)
	assert.Equal(t, 25.0, s.ACoS)
	assert.Equal(t, 4.0, s.ROAS)
	assert.Equal(t, 5.71, s.TACoS)
	assert.InDelta(t, 265.71, s.TotalNetProfit, 1e-9)
	assert.Equal(t, 2, s.SKUCount)
	assert.Equal(t, 2, s.CampaignCount)

	again := BuildSummary(business, terms, costs)
	assert.Equal(t, s, again)
}

func TestServiceQueries(t *testing.T) {
	business, terms := fixture()
	st := store.NewMemoryStore()
	st.ReplaceBusiness(business, business)
	st.ReplaceSearchTerms(terms, business)
	l := ledger.NewMemoryLedger()
	ctx := context.Background()
	_, err := l.Upsert(ctx, models.CostEntry{SKU: "A", SalePrice: 30, AmazonFees: 9, COGS: 6})
	require.NoError(t, err)

	svc := NewService(st, l)

	skus, err := svc.QuerySKUs(ctx, url.Values{"sku": {"b"}})
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, "B", skus[0].SKU)

	day, err := svc.QuerySKUs(ctx, url.Values{"from": {"2024-01-01"}, "to": {"2024-01-01"}})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, 300.0, day[0].Sales)

	camps, err := svc.QueryCampaigns(ctx, url.Values{"match_type": {"broad"}})
	require.NoError(t, err)
	require.Len(t, camps, 1)
	assert.Equal(t, "C2", camps[0].Campaign)

	found, err := svc.QuerySearchTerms(ctx, url.Values{"q": {"MU"}})
	require.NoError(t, err)
	require.Len(t, found, 1)

	paged, err := svc.QueryDaily(ctx, url.Values{"limit": {"1"}, "offset": {"1"}})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "2024-01-02", paged[0].Date)

	sum, err := svc.Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 700.0, sum.TotalSales)

	_, err = svc.Summary(ctx, url.Values{"from": {"01/02/2024"}})
	assert.ErrorIs(t, err, ErrBadQuery)
}
