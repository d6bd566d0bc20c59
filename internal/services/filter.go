package services

import (
	"sales-kpi-dashboard/internal/models"
)

// DefaultSelection selects every region and category present in table.
func DefaultSelection(table *models.SalesTable) models.FilterSelection {
	return models.FilterSelection{
		Regions:    table.Regions(),
		Categories: table.Categories(),
	}
}

// Filter keeps the records whose region and category are both selected,
// preserving order. An empty set on either dimension selects nothing.
func Filter(records []models.SalesRecord, sel models.FilterSelection) []models.SalesRecord {
	out := make([]models.SalesRecord, 0, len(records))
	if len(sel.Regions) == 0 || len(sel.Categories) == 0 {
		return out
	}

	regions := toSet(sel.Regions)
	categories := toSet(sel.Categories)

	for _, r := range records {
		if _, ok := regions[r.Region]; !ok {
			continue
		}
		if _, ok := categories[r.Category]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SanitizeSelection drops values that do not occur in table and removes
// duplicates, keeping the caller's order.
func SanitizeSelection(table *models.SalesTable, sel models.FilterSelection) models.FilterSelection {
	return models.FilterSelection{
		Regions:    intersect(sel.Regions, toSet(table.Regions())),
		Categories: intersect(sel.Categories, toSet(table.Categories())),
	}
}

func intersect(values []string, allowed map[string]struct{}) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := allowed[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
