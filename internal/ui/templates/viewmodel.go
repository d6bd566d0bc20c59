package templates

import (
	"fmt"

	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/ui/charts"
	"sales-kpi-dashboard/internal/ui/format"
)

type PageData struct {
	Title     string
	Source    string
	HasTable  bool
	Error     string
	Filters   FilterData
	Dashboard DashboardData
}

type FilterData struct {
	Regions    []Option
	Categories []Option
	// Signals is the initial Datastar signal object for the selects.
	Signals string
}

type Option struct {
	Value    string
	Selected bool
}

type DashboardData struct {
	Empty   bool
	Message string
	Cards   []Card
	Charts  charts.URLs
	Table   TableData
}

type Card struct {
	Name  string
	Title string
	Value string
	Delta *format.Delta
}

type TableData struct {
	Header   []string
	Rows     [][]string
	Shown    int
	Filtered int
	Total    int
}

func (t TableData) Truncated() bool {
	return t.Shown < t.Filtered
}

// NewDashboardData formats a computed view for display. At most maxRows
// filtered rows are rendered; maxRows <= 0 renders all of them.
func NewDashboardData(view models.DashboardView, f *format.Formatter, maxRows int) (DashboardData, error) {
	d := DashboardData{
		Empty:   view.Empty,
		Message: view.Message,
	}

	for _, v := range view.KPIs.Values() {
		card := Card{Name: v.Name, Title: v.Title, Value: f.Value(v)}
		if v.Delta != nil {
			delta := format.FormatDelta(*v.Delta)
			card.Delta = &delta
		}
		d.Cards = append(d.Cards, card)
	}

	if !view.Empty {
		urls, err := charts.Build(view.Charts)
		if err != nil {
			return DashboardData{}, fmt.Errorf("build charts: %w", err)
		}
		d.Charts = urls
	}

	shown := len(view.Rows)
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	rows := make([][]string, shown)
	for i := range rows {
		rows[i] = view.Rows[i].Fields
	}
	d.Table = TableData{
		Header:   view.Header,
		Rows:     rows,
		Shown:    shown,
		Filtered: len(view.Rows),
		Total:    view.TotalRecords,
	}
	return d, nil
}

// NewFilterData marks the selected values among everything the table offers.
func NewFilterData(table *models.SalesTable, sel models.FilterSelection, signals string) FilterData {
	return FilterData{
		Regions:    options(table.Regions(), sel.Regions),
		Categories: options(table.Categories(), sel.Categories),
		Signals:    signals,
	}
}

func options(all, selected []string) []Option {
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[s] = struct{}{}
	}
	out := make([]Option, len(all))
	for i, v := range all {
		_, ok := set[v]
		out[i] = Option{Value: v, Selected: ok}
	}
	return out
}
