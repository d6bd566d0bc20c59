package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const PeriodLayout = "2006-01"

// PeriodKey is the calendar year-month of an order date, e.g. "2024-03".
// Keys sort lexically in calendar order.
type PeriodKey string

type SalesRecord struct {
	OrderDate time.Time
	Region    string
	Category  string
	Sales     decimal.Decimal
	Profit    decimal.Decimal
	Period    PeriodKey
	// Fields holds the raw row, aligned with SalesTable.Header.
	Fields []string
}

// SalesTable is the ingested upload. It is never mutated after ingestion;
// a new upload replaces it wholesale.
type SalesTable struct {
	Source   string
	Header   []string
	Records  []SalesRecord
	LoadedAt time.Time
}

func (t *SalesTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Regions returns the distinct regions in order of first appearance.
func (t *SalesTable) Regions() []string {
	return t.distinct(func(r SalesRecord) string { return r.Region })
}

// Categories returns the distinct categories in order of first appearance.
func (t *SalesTable) Categories() []string {
	return t.distinct(func(r SalesRecord) string { return r.Category })
}

func (t *SalesTable) distinct(key func(SalesRecord) string) []string {
	if t == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range t.Records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Periods returns the distinct period keys in ascending order.
func (t *SalesTable) Periods() []PeriodKey {
	if t == nil {
		return []PeriodKey{}
	}
	seen := make(map[PeriodKey]struct{})
	out := make([]PeriodKey, 0)
	for _, r := range t.Records {
		if _, ok := seen[r.Period]; ok {
			continue
		}
		seen[r.Period] = struct{}{}
		out = append(out, r.Period)
	}
	slices.Sort(out)
	return out
}

func (t *SalesTable) Summary() TableSummary {
	s := TableSummary{
		Source:     t.Source,
		Records:    t.Len(),
		Columns:    t.Header,
		Regions:    t.Regions(),
		Categories: t.Categories(),
		Periods:    t.Periods(),
		LoadedAt:   t.LoadedAt,
	}
	for i, r := range t.Records {
		if i == 0 || r.OrderDate.Before(s.FirstDate) {
			s.FirstDate = r.OrderDate
		}
		if i == 0 || r.OrderDate.After(s.LastDate) {
			s.LastDate = r.OrderDate
		}
	}
	return s
}

type TableSummary struct {
	Source     string      `json:"source"`
	Records    int         `json:"records"`
	Columns    []string    `json:"columns"`
	Regions    []string    `json:"regions"`
	Categories []string    `json:"categories"`
	Periods    []PeriodKey `json:"periods"`
	FirstDate  time.Time   `json:"first_date"`
	LastDate   time.Time   `json:"last_date"`
	LoadedAt   time.Time   `json:"loaded_at"`
}

// FilterSelection is the set of region and category values included in
// every downstream computation. An empty slice selects nothing.
type FilterSelection struct {
	Regions    []string `json:"regions"`
	Categories []string `json:"categories"`
}

func (s FilterSelection) Clone() FilterSelection {
	return FilterSelection{
		Regions:    append([]string{}, s.Regions...),
		Categories: append([]string{}, s.Categories...),
	}
}
