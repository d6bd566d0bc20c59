package services

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sales-kpi-dashboard/internal/models"
)

func TestSalesByCategory(t *testing.T) {
	records := []models.SalesRecord{
		testRecord(t, "2024-01-01", "A", "X", "10", "0"),
		testRecord(t, "2024-01-02", "A", "X", "20", "0"),
		testRecord(t, "2024-01-03", "B", "Y", "5", "0"),
	}

	got := SalesByCategory(records)

	want := []models.GroupTotal{{Key: "X", Sales: 30}, {Key: "Y", Sales: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SalesByCategory() mismatch (-want +got):\n%s", diff)
	}
}

func TestSalesByRegion_SortedByKey(t *testing.T) {
	records := []models.SalesRecord{
		testRecord(t, "2024-01-01", "West", "X", "1.10", "0"),
		testRecord(t, "2024-01-02", "East", "X", "2.20", "0"),
		testRecord(t, "2024-01-03", "West", "Y", "3.30", "0"),
	}

	got := SalesByRegion(records)

	want := []models.GroupTotal{{Key: "East", Sales: 2.2}, {Key: "West", Sales: 4.4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SalesByRegion() mismatch (-want +got):\n%s", diff)
	}
}

func TestSalesByDate(t *testing.T) {
	records := []models.SalesRecord{
		testRecord(t, "2024-03-02", "A", "X", "7", "0"),
		testRecord(t, "2024-03-01", "A", "X", "5", "0"),
		testRecord(t, "2024-03-02", "B", "Y", "3", "0"),
	}

	got := SalesByDate(records)

	want := []models.DatePoint{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Sales: 5},
		{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Sales: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SalesByDate() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCharts_Empty(t *testing.T) {
	charts := BuildCharts(nil)
	if charts.Trend == nil || charts.ByCategory == nil || charts.ByRegion == nil {
		t.Error("BuildCharts(nil) should return empty, non-nil datasets")
	}
}
