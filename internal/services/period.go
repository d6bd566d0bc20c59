package services

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"sales-kpi-dashboard/internal/models"
)

// PeriodOf returns the year-month key of t.
func PeriodOf(t time.Time) models.PeriodKey {
	return models.PeriodKey(now.New(t).BeginningOfMonth().Format(models.PeriodLayout))
}

// PreviousPeriod returns the calendar month immediately before key,
// rolling over the year boundary.
func PreviousPeriod(key models.PeriodKey) (models.PeriodKey, error) {
	t, err := time.Parse(models.PeriodLayout, string(key))
	if err != nil {
		return "", fmt.Errorf("invalid period key %q: %w", key, err)
	}
	prev := now.New(t).BeginningOfMonth().AddDate(0, -1, 0)
	return models.PeriodKey(prev.Format(models.PeriodLayout)), nil
}

// Partition splits a filtered table into the latest month and the calendar
// month before it. Prior may be empty.
type Partition struct {
	Latest   models.PeriodKey
	Previous models.PeriodKey
	Current  []models.SalesRecord
	Prior    []models.SalesRecord
}

// SelectPeriods finds the latest period among records and partitions them.
// It returns ErrEmptyData when records is empty.
func SelectPeriods(records []models.SalesRecord) (Partition, error) {
	if len(records) == 0 {
		return Partition{}, ErrEmptyData
	}

	latest := records[0].Period
	for _, r := range records[1:] {
		if r.Period > latest {
			latest = r.Period
		}
	}

	previous, err := PreviousPeriod(latest)
	if err != nil {
		return Partition{}, err
	}

	p := Partition{
		Latest:   latest,
		Previous: previous,
		Current:  make([]models.SalesRecord, 0),
		Prior:    make([]models.SalesRecord, 0),
	}
	for _, r := range records {
		switch r.Period {
		case latest:
			p.Current = append(p.Current, r)
		case previous:
			p.Prior = append(p.Prior, r)
		}
	}
	return p, nil
}
