package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"sales-kpi-dashboard/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMoMChange(t *testing.T) {
	tests := []struct {
		name       string
		curr, prev string
		want       float64
	}{
		{"doubling", "100", "50", 100.0},
		{"halving", "50", "100", -50.0},
		{"prev zero", "123.45", "0", 0},
		{"both zero", "0", "0", 0},
		{"negative curr prev zero", "-10", "0", 0},
		{"unchanged", "42", "42", 0},
		{"negative prev", "-50", "-100", -50.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoMChange(dec(tt.curr), dec(tt.prev))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MoMChange(%s, %s) = %v, want %v", tt.curr, tt.prev, got, tt.want)
			}
		})
	}
}

func TestAverageOrderValue(t *testing.T) {
	if got := AverageOrderValue(nil); !got.IsZero() {
		t.Errorf("AverageOrderValue(nil) = %s, want 0", got)
	}

	records := []models.SalesRecord{
		testRecord(t, "2024-01-01", "A", "X", "10", "0"),
		testRecord(t, "2024-01-02", "A", "X", "20", "0"),
		testRecord(t, "2024-02-02", "A", "X", "30", "0"),
	}
	if got := AverageOrderValue(records); !got.Equal(dec("20")) {
		t.Errorf("AverageOrderValue() = %s, want 20", got)
	}
}

func TestComputeKPIs_TwoMonthScenario(t *testing.T) {
	filtered := []models.SalesRecord{
		testRecord(t, "2024-02-14", "A", "X", "100", "10"),
		testRecord(t, "2024-03-14", "B", "X", "200", "30"),
	}
	p, err := SelectPeriods(filtered)
	if err != nil {
		t.Fatalf("SelectPeriods() error = %v", err)
	}

	k := ComputeKPIs(filtered, p)

	if k.LatestPeriod != "2024-03" || k.PreviousPeriod != "2024-02" {
		t.Errorf("periods = %q/%q", k.LatestPeriod, k.PreviousPeriod)
	}
	if !k.SalesCurrent.Equal(dec("200")) || !k.SalesPrevious.Equal(dec("100")) {
		t.Errorf("sales = %s/%s, want 200/100", k.SalesCurrent, k.SalesPrevious)
	}
	if k.SalesDelta != 100.0 {
		t.Errorf("SalesDelta = %v, want 100", k.SalesDelta)
	}
	if !k.ProfitCurrent.Equal(dec("30")) || !k.ProfitPrevious.Equal(dec("10")) {
		t.Errorf("profit = %s/%s, want 30/10", k.ProfitCurrent, k.ProfitPrevious)
	}
	if k.ProfitDelta != 200.0 {
		t.Errorf("ProfitDelta = %v, want 200", k.ProfitDelta)
	}
	if k.OrderCount != 2 {
		t.Errorf("OrderCount = %d, want 2", k.OrderCount)
	}
	if !k.AvgOrderValue.Equal(dec("150")) {
		t.Errorf("AvgOrderValue = %s, want 150", k.AvgOrderValue)
	}
}

func TestComputeKPIs_NoPreviousMonth(t *testing.T) {
	filtered := []models.SalesRecord{
		testRecord(t, "2024-03-01", "A", "X", "80", "8"),
		testRecord(t, "2024-03-20", "A", "Y", "20", "2"),
	}
	p, err := SelectPeriods(filtered)
	if err != nil {
		t.Fatalf("SelectPeriods() error = %v", err)
	}

	k := ComputeKPIs(filtered, p)

	if !k.SalesPrevious.IsZero() {
		t.Errorf("SalesPrevious = %s, want 0", k.SalesPrevious)
	}
	if k.SalesDelta != 0 {
		t.Errorf("SalesDelta = %v, want 0 when previous month has no rows", k.SalesDelta)
	}
	if !k.SalesCurrent.Equal(dec("100")) {
		t.Errorf("SalesCurrent = %s, want 100", k.SalesCurrent)
	}
}

func TestComputeKPIs_OrderCountSpansAllMonths(t *testing.T) {
	table := sampleTable(t)
	p, err := SelectPeriods(table.Records)
	if err != nil {
		t.Fatal(err)
	}

	k := ComputeKPIs(table.Records, p)

	if k.OrderCount != 5 {
		t.Errorf("OrderCount = %d, want 5 (whole filtered table)", k.OrderCount)
	}
	// (100+50+200+300+75)/5
	if !k.AvgOrderValue.Equal(dec("145")) {
		t.Errorf("AvgOrderValue = %s, want 145", k.AvgOrderValue)
	}
	if !k.SalesCurrent.Equal(dec("500")) || !k.SalesPrevious.Equal(dec("150")) {
		t.Errorf("sales = %s/%s, want 500/150", k.SalesCurrent, k.SalesPrevious)
	}
}

func TestKPISet_Values(t *testing.T) {
	k := models.KPISet{
		SalesCurrent:  dec("200"),
		ProfitCurrent: dec("-12.5"),
		OrderCount:    7,
		AvgOrderValue: dec("28.5"),
		SalesDelta:    100,
		ProfitDelta:   -25,
	}

	values := k.Values()
	if len(values) != 4 {
		t.Fatalf("Values() = %d cards, want 4", len(values))
	}

	names := []string{models.KPITotalSales, models.KPITotalProfit, models.KPITotalOrders, models.KPIAvgOrderValue}
	for i, name := range names {
		if values[i].Name != name {
			t.Errorf("card %d = %q, want %q", i, values[i].Name, name)
		}
	}
	if values[0].Delta == nil || *values[0].Delta != 100 {
		t.Errorf("sales delta = %v, want 100", values[0].Delta)
	}
	if values[1].Value != -12.5 {
		t.Errorf("profit value = %v, want -12.5", values[1].Value)
	}
	if values[2].Delta != nil || values[3].Delta != nil {
		t.Error("orders and average order value have no delta")
	}
	if values[2].Kind != models.KPICount || values[2].Value != 7 {
		t.Errorf("orders card = %+v", values[2])
	}
}

func TestEmptyKPIs(t *testing.T) {
	k := EmptyKPIs()
	if !k.SalesCurrent.IsZero() || !k.AvgOrderValue.IsZero() || k.OrderCount != 0 {
		t.Errorf("EmptyKPIs() = %+v, want all zero", k)
	}
}
