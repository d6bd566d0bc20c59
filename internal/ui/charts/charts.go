// Package charts turns chart datasets into QuickChart image URLs. Nothing
// is fetched; the browser loads the image.
package charts

import (
	"encoding/json"
	"fmt"
	"time"

	quickchartgo "github.com/henomis/quickchart-go"
	"github.com/jinzhu/now"

	"sales-kpi-dashboard/internal/models"
)

const (
	lineColor  = "#4c9aff"
	labelColor = "#b0b0b0"
	gridColor  = "rgba(255,255,255,0.08)"
	dateLayout = "2006-01-02"

	// MaxTrendPoints bounds the trend series so the image URL stays well
	// under common request-line limits.
	MaxTrendPoints = 90
)

var weekConfig = &now.Config{WeekStartDay: time.Monday}

var palette = []string{
	"#4c9aff", "#00c9a7", "#ffab00", "#ff5630", "#6554c0",
	"#36b37e", "#ff7eb6", "#00b8d9", "#998dd9", "#c1c7d0",
}

type ChartConfig struct {
	Type    string         `json:"type"`
	Data    ChartData      `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	DataSets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	Fill            bool      `json:"fill"`
	LineTension     float32   `json:"lineTension,omitempty"`
	BorderColor     any       `json:"borderColor,omitempty"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
}

// URLs holds one image URL per dashboard chart. Empty datasets produce an
// empty URL.
type URLs struct {
	Trend    string
	Category string
	Region   string
}

func Build(data models.ChartData) (URLs, error) {
	var (
		urls URLs
		err  error
	)
	if urls.Trend, err = TrendURL(data.Trend); err != nil {
		return URLs{}, fmt.Errorf("trend chart: %w", err)
	}
	if urls.Category, err = CategoryURL(data.ByCategory); err != nil {
		return URLs{}, fmt.Errorf("category chart: %w", err)
	}
	if urls.Region, err = RegionURL(data.ByRegion); err != nil {
		return URLs{}, fmt.Errorf("region chart: %w", err)
	}
	return urls, nil
}

// TrendURL renders daily sales as a line chart. Long series are summed
// into weekly or monthly buckets first, see BucketTrend.
func TrendURL(points []models.DatePoint) (string, error) {
	if len(points) == 0 {
		return "", nil
	}
	points = BucketTrend(points)
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Date.Format(dateLayout)
		values[i] = p.Sales
	}
	return chartURL(ChartConfig{
		Type: "line",
		Data: ChartData{
			Labels: labels,
			DataSets: []Dataset{{
				Label:       "Sales",
				Data:        values,
				LineTension: 0.2,
				BorderColor: lineColor,
			}},
		},
		Options: axisOptions(),
	})
}

// CategoryURL renders category totals as a doughnut.
func CategoryURL(groups []models.GroupTotal) (string, error) {
	if len(groups) == 0 {
		return "", nil
	}
	labels, values := split(groups)
	return chartURL(ChartConfig{
		Type: "doughnut",
		Data: ChartData{
			Labels: labels,
			DataSets: []Dataset{{
				Label:           "Sales",
				Data:            values,
				BackgroundColor: colors(len(groups)),
			}},
		},
		Options: map[string]any{
			"cutoutPercentage": 50,
			"legend":           map[string]any{"labels": map[string]any{"fontColor": labelColor}},
		},
	})
}

// RegionURL renders region totals as a bar chart.
func RegionURL(groups []models.GroupTotal) (string, error) {
	if len(groups) == 0 {
		return "", nil
	}
	labels, values := split(groups)
	return chartURL(ChartConfig{
		Type: "bar",
		Data: ChartData{
			Labels: labels,
			DataSets: []Dataset{{
				Label:           "Sales",
				Data:            values,
				BackgroundColor: lineColor,
			}},
		},
		Options: axisOptions(),
	})
}

func chartURL(cfg ChartConfig) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal chart config: %w", err)
	}
	qc := quickchartgo.New()
	qc.Config = string(b)
	u, err := qc.GetUrl()
	if err != nil {
		return "", fmt.Errorf("build chart url: %w", err)
	}
	return u, nil
}

// BucketTrend returns points unchanged when there are at most
// MaxTrendPoints of them. Otherwise it sums them by week, then by month,
// and finally by fixed runs of consecutive months until the series fits.
// Each bucket is labelled with its first day. points must be sorted by date.
func BucketTrend(points []models.DatePoint) []models.DatePoint {
	if len(points) <= MaxTrendPoints {
		return points
	}
	weeks := sumBy(points, func(t time.Time) time.Time { return weekConfig.With(t).BeginningOfWeek() })
	if len(weeks) <= MaxTrendPoints {
		return weeks
	}
	points = sumBy(points, func(t time.Time) time.Time { return now.With(t).BeginningOfMonth() })
	if len(points) <= MaxTrendPoints {
		return points
	}

	size := (len(points) + MaxTrendPoints - 1) / MaxTrendPoints
	out := make([]models.DatePoint, 0, MaxTrendPoints)
	for i := 0; i < len(points); i += size {
		p := models.DatePoint{Date: points[i].Date}
		for _, q := range points[i:min(i+size, len(points))] {
			p.Sales += q.Sales
		}
		out = append(out, p)
	}
	return out
}

func sumBy(points []models.DatePoint, start func(time.Time) time.Time) []models.DatePoint {
	out := make([]models.DatePoint, 0, len(points))
	for _, p := range points {
		key := start(p.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(key) {
			out[n-1].Sales += p.Sales
			continue
		}
		out = append(out, models.DatePoint{Date: key, Sales: p.Sales})
	}
	return out
}

func split(groups []models.GroupTotal) ([]string, []float64) {
	labels := make([]string, len(groups))
	values := make([]float64, len(groups))
	for i, g := range groups {
		labels[i] = g.Key
		values[i] = g.Sales
	}
	return labels, values
}

func colors(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}

func axisOptions() map[string]any {
	axis := []map[string]any{{
		"ticks":     map[string]any{"fontColor": labelColor},
		"gridLines": map[string]any{"color": gridColor},
	}}
	return map[string]any{
		"legend": map[string]any{"display": false},
		"scales": map[string]any{"xAxes": axis, "yAxes": axis},
	}
}
