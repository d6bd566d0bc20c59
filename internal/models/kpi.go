package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type KPIKind string

const (
	KPICurrency KPIKind = "currency"
	KPICount    KPIKind = "count"
)

const (
	KPITotalSales    = "total_sales"
	KPITotalProfit   = "total_profit"
	KPITotalOrders   = "total_orders"
	KPIAvgOrderValue = "avg_order_value"
)

// KPIValue is one card of the dashboard. Delta is nil for metrics that have
// no month-over-month comparison.
type KPIValue struct {
	Name  string   `json:"name"`
	Title string   `json:"title"`
	Kind  KPIKind  `json:"kind"`
	Value float64  `json:"value"`
	Delta *float64 `json:"delta,omitempty"`
}

// KPISet holds the raw aggregates behind the four cards.
type KPISet struct {
	LatestPeriod   PeriodKey
	PreviousPeriod PeriodKey
	SalesCurrent   decimal.Decimal
	SalesPrevious  decimal.Decimal
	ProfitCurrent  decimal.Decimal
	ProfitPrevious decimal.Decimal
	OrderCount     int
	AvgOrderValue  decimal.Decimal
	SalesDelta     float64
	ProfitDelta    float64
}

func (k KPISet) Values() []KPIValue {
	salesDelta, profitDelta := k.SalesDelta, k.ProfitDelta
	return []KPIValue{
		{Name: KPITotalSales, Title: "Total Sales (MoM)", Kind: KPICurrency, Value: k.SalesCurrent.InexactFloat64(), Delta: &salesDelta},
		{Name: KPITotalProfit, Title: "Total Profit (MoM)", Kind: KPICurrency, Value: k.ProfitCurrent.InexactFloat64(), Delta: &profitDelta},
		{Name: KPITotalOrders, Title: "Total Orders", Kind: KPICount, Value: float64(k.OrderCount)},
		{Name: KPIAvgOrderValue, Title: "Avg Order Value", Kind: KPICurrency, Value: k.AvgOrderValue.InexactFloat64()},
	}
}

type DatePoint struct {
	Date  time.Time `json:"date"`
	Sales float64   `json:"sales"`
}

type GroupTotal struct {
	Key   string  `json:"key"`
	Sales float64 `json:"sales"`
}

type ChartData struct {
	Trend      []DatePoint  `json:"trend"`
	ByCategory []GroupTotal `json:"by_category"`
	ByRegion   []GroupTotal `json:"by_region"`
}

// DashboardView is the result of one recomputation pass for a table and a
// selection.
type DashboardView struct {
	Selection FilterSelection
	Empty     bool
	Message   string
	KPIs      KPISet
	Charts    ChartData
	Header    []string
	Rows      []SalesRecord
	// TotalRecords is the size of the unfiltered table.
	TotalRecords int
}
