package services

import (
	"github.com/shopspring/decimal"

	"sales-kpi-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MoMChange is the percentage change from prev to curr. It returns 0 when
// prev is zero instead of an undefined ratio.
func MoMChange(curr, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		return 0
	}
	return curr.Sub(prev).Mul(hundred).Div(prev).InexactFloat64()
}

// ComputeKPIs aggregates the four dashboard metrics. Sales and profit come
// from the partition; order count and average order value cover the whole
// filtered table.
func ComputeKPIs(filtered []models.SalesRecord, p Partition) models.KPISet {
	k := models.KPISet{
		LatestPeriod:   p.Latest,
		PreviousPeriod: p.Previous,
		SalesCurrent:   sumSales(p.Current),
		SalesPrevious:  sumSales(p.Prior),
		ProfitCurrent:  sumProfit(p.Current),
		ProfitPrevious: sumProfit(p.Prior),
		OrderCount:     len(filtered),
		AvgOrderValue:  AverageOrderValue(filtered),
	}
	k.SalesDelta = MoMChange(k.SalesCurrent, k.SalesPrevious)
	k.ProfitDelta = MoMChange(k.ProfitCurrent, k.ProfitPrevious)
	return k
}

// AverageOrderValue is total sales over the record count, or zero for no
// records.
func AverageOrderValue(records []models.SalesRecord) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	return sumSales(records).Div(decimal.NewFromInt(int64(len(records))))
}

// EmptyKPIs is the neutral state shown when the filtered table is empty.
func EmptyKPIs() models.KPISet {
	return models.KPISet{
		SalesCurrent:   decimal.Zero,
		SalesPrevious:  decimal.Zero,
		ProfitCurrent:  decimal.Zero,
		ProfitPrevious: decimal.Zero,
		AvgOrderValue:  decimal.Zero,
	}
}

func sumSales(records []models.SalesRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Sales)
	}
	return total
}

func sumProfit(records []models.SalesRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Profit)
	}
	return total
}
