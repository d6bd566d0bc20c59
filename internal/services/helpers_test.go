package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-kpi-dashboard/internal/models"
)

func testRecord(t *testing.T, date, region, category, sales, profit string) models.SalesRecord {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	return models.SalesRecord{
		OrderDate: d,
		Region:    region,
		Category:  category,
		Sales:     decimal.RequireFromString(sales),
		Profit:    decimal.RequireFromString(profit),
		Period:    PeriodOf(d),
		Fields:    []string{date, region, category, sales, profit},
	}
}

func testTable(records ...models.SalesRecord) *models.SalesTable {
	return &models.SalesTable{
		Source:  "test.csv",
		Header:  []string{"Order_Date", "Region", "Category", "Sales", "Profit"},
		Records: records,
	}
}

func sampleTable(t *testing.T) *models.SalesTable {
	t.Helper()
	return testTable(
		testRecord(t, "2024-02-03", "North", "Furniture", "100", "10"),
		testRecord(t, "2024-02-17", "South", "Technology", "50", "-5"),
		testRecord(t, "2024-03-01", "North", "Technology", "200", "40"),
		testRecord(t, "2024-03-09", "South", "Furniture", "300", "30"),
		testRecord(t, "2024-01-20", "East", "Office", "75", "7.5"),
	)
}
