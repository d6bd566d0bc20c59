package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-kpi-dashboard/internal/models"
)

func TestDefaultSelection(t *testing.T) {
	sel := DefaultSelection(sampleTable(t))

	want := models.FilterSelection{
		Regions:    []string{"North", "South", "East"},
		Categories: []string{"Furniture", "Technology", "Office"},
	}
	if diff := cmp.Diff(want, sel); diff != "" {
		t.Errorf("DefaultSelection() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_AllSelectedEqualsTable(t *testing.T) {
	table := sampleTable(t)

	got := Filter(table.Records, DefaultSelection(table))

	if diff := cmp.Diff(table.Records, got); diff != "" {
		t.Errorf("Filter() with full selection should return the table (-want +got):\n%s", diff)
	}
}

func TestFilter_EmptySetSelectsNothing(t *testing.T) {
	table := sampleTable(t)
	all := DefaultSelection(table)

	tests := []struct {
		name string
		sel  models.FilterSelection
	}{
		{"no regions", models.FilterSelection{Regions: nil, Categories: all.Categories}},
		{"no categories", models.FilterSelection{Regions: all.Regions, Categories: []string{}}},
		{"nothing", models.FilterSelection{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(table.Records, tt.sel)
			if len(got) != 0 {
				t.Errorf("Filter() = %d records, want 0", len(got))
			}
			if got == nil {
				t.Error("Filter() should return an empty, non-nil slice")
			}
		})
	}
}

func TestFilter_ConjunctionPreservesOrder(t *testing.T) {
	table := sampleTable(t)

	got := Filter(table.Records, models.FilterSelection{
		Regions:    []string{"South", "North"},
		Categories: []string{"Furniture"},
	})

	var dates []string
	for _, r := range got {
		dates = append(dates, r.OrderDate.Format("2006-01-02"))
	}
	want := []string{"2024-02-03", "2024-03-09"}
	if diff := cmp.Diff(want, dates); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_UnknownValues(t *testing.T) {
	table := sampleTable(t)

	got := Filter(table.Records, models.FilterSelection{
		Regions:    []string{"Atlantis"},
		Categories: []string{"Furniture"},
	})
	if len(got) != 0 {
		t.Errorf("Filter() = %d records, want 0", len(got))
	}
}

func TestSanitizeSelection(t *testing.T) {
	table := sampleTable(t)

	got := SanitizeSelection(table, models.FilterSelection{
		Regions:    []string{"South", "Atlantis", "South"},
		Categories: []string{"Office"},
	})

	want := models.FilterSelection{
		Regions:    []string{"South"},
		Categories: []string{"Office"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SanitizeSelection() mismatch (-want +got):\n%s", diff)
	}
}
