package services

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-kpi-dashboard/internal/models"
)

func BuildCharts(records []models.SalesRecord) models.ChartData {
	return models.ChartData{
		Trend:      SalesByDate(records),
		ByCategory: SalesByCategory(records),
		ByRegion:   SalesByRegion(records),
	}
}

// SalesByDate sums sales per order date, oldest first.
func SalesByDate(records []models.SalesRecord) []models.DatePoint {
	groups := make(map[time.Time]decimal.Decimal)
	for _, r := range records {
		groups[r.OrderDate] = groups[r.OrderDate].Add(r.Sales)
	}

	result := make([]models.DatePoint, 0, len(groups))
	for day, total := range groups {
		result = append(result, models.DatePoint{Date: day, Sales: total.InexactFloat64()})
	}
	slices.SortFunc(result, func(a, b models.DatePoint) int {
		return a.Date.Compare(b.Date)
	})
	return result
}

func SalesByCategory(records []models.SalesRecord) []models.GroupTotal {
	return groupSales(records, func(r models.SalesRecord) string { return r.Category })
}

func SalesByRegion(records []models.SalesRecord) []models.GroupTotal {
	return groupSales(records, func(r models.SalesRecord) string { return r.Region })
}

// groupSales sums sales per key, ordered by key.
func groupSales(records []models.SalesRecord, key func(models.SalesRecord) string) []models.GroupTotal {
	groups := make(map[string]decimal.Decimal)
	for _, r := range records {
		k := key(r)
		groups[k] = groups[k].Add(r.Sales)
	}

	result := make([]models.GroupTotal, 0, len(groups))
	for k, total := range groups {
		result = append(result, models.GroupTotal{Key: k, Sales: total.InexactFloat64()})
	}
	slices.SortFunc(result, func(a, b models.GroupTotal) int {
		return strings.Compare(a.Key, b.Key)
	})
	return result
}
