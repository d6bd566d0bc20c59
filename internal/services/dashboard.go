package services

import (
	"errors"

	"sales-kpi-dashboard/internal/models"
)

const EmptySelectionMessage = "No records match the selected filters. Adjust the region or category selection."

// BuildDashboard runs one full recomputation: filter, select periods,
// aggregate KPIs and chart datasets. An empty filtered table yields the
// neutral empty view instead of an error.
func BuildDashboard(table *models.SalesTable, sel models.FilterSelection) (models.DashboardView, error) {
	var records []models.SalesRecord
	var header []string
	if table != nil {
		records = table.Records
		header = table.Header
	}

	filtered := Filter(records, sel)
	view := models.DashboardView{
		Selection:    sel,
		Header:       header,
		Rows:         filtered,
		TotalRecords: table.Len(),
	}

	part, err := SelectPeriods(filtered)
	if errors.Is(err, ErrEmptyData) {
		view.Empty = true
		view.Message = EmptySelectionMessage
		view.KPIs = EmptyKPIs()
		view.Charts = models.ChartData{
			Trend:      []models.DatePoint{},
			ByCategory: []models.GroupTotal{},
			ByRegion:   []models.GroupTotal{},
		}
		return view, nil
	}
	if err != nil {
		return models.DashboardView{}, err
	}

	view.KPIs = ComputeKPIs(filtered, part)
	view.Charts = BuildCharts(filtered)
	return view, nil
}
