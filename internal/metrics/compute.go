package metrics

import (
	"math"

	"github.com/shopspring/decimal"
)

// OrganicSales is the part of total sales not attributed to ads, clipped at 0.
func OrganicSales(totalSales, ppcSales float64) float64 {
	if v := totalSales - ppcSales; v > 0 {
		return v
	}
	return 0
}

// ACoS is spend as a percentage of ad sales.
func ACoS(spend, sales float64) float64 {
	if sales <= 0 {
		return 0
	}
	return spend / sales * 100
}

func ROAS(sales, spend float64) float64 {
	if spend <= 0 {
		return 0
	}
	return sales / spend
}

func CTR(clicks, impressions int) float64 {
	if impressions <= 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

func CVR(orders, clicks int) float64 {
	if clicks <= 0 {
		return 0
	}
	return float64(orders) / float64(clicks) * 100
}

func CPC(spend float64, clicks int) float64 {
	if clicks <= 0 {
		return 0
	}
	return spend / float64(clicks)
}

// TACoS is ad spend as a percentage of all sales, organic included.
func TACoS(spend, totalSales float64) float64 {
	if totalSales <= 0 {
		return 0
	}
	return spend / totalSales * 100
}

// Allocation is a SKU's revenue-proportional slice of the account's PPC
// activity.
type Allocation struct {
	SalesShare float64
	PPCSales   float64
	PPCSpend   float64
}

// Allocate attributes PPC sales and spend to a SKU by its share of total
// revenue. Search term data has no SKU column, so this is an approximation
// that assumes ad exposure follows revenue.
func Allocate(skuSales, allSkuSales, totalPPCSales, totalPPCSpend float64) Allocation {
	if allSkuSales <= 0 {
		return Allocation{}
	}
	share := skuSales / allSkuSales
	return Allocation{
		SalesShare: share,
		PPCSales:   totalPPCSales * share,
		PPCSpend:   totalPPCSpend * share,
	}
}

func ProfitPerUnit(salePrice, amazonFees, cogs float64) float64 {
	return salePrice - amazonFees - cogs
}

// CostPerConversion spreads allocated spend over the units sold.
func CostPerConversion(allocatedSpend float64, unitsOrdered int) float64 {
	if unitsOrdered <= 0 {
		return 0
	}
	return allocatedSpend / float64(unitsOrdered)
}

func NetProfitPerUnit(profitPerUnit, costPerConversion float64) float64 {
	return profitPerUnit - costPerConversion
}

func round2(f float64) float64 { return roundTo(f, 2) }
func round4(f float64) float64 { return roundTo(f, 4) }

func roundTo(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}
