// Package format renders KPI values for display.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sales-kpi-dashboard/internal/models"
)

const (
	colorUp   = "#00ff88"
	colorDown = "#ff4b4b"
)

type Formatter struct {
	symbol  string
	printer *message.Printer
}

func New(currencySymbol string) *Formatter {
	return &Formatter{
		symbol:  currencySymbol,
		printer: message.NewPrinter(language.English),
	}
}

// Currency rounds to whole units and groups thousands: "₹ 1,235". The sign
// follows the symbol: "₹ -1,235".
func (f *Formatter) Currency(v float64) string {
	return f.printer.Sprintf("%s %d", f.symbol, int64(math.Round(v)))
}

func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Value formats a KPI card value according to its kind.
func (f *Formatter) Value(v models.KPIValue) string {
	if v.Kind == models.KPICount {
		return f.Count(int(v.Value))
	}
	return f.Currency(v.Value)
}

type Delta struct {
	Direction string
	Arrow     string
	Color     string
	Text      string
}

// FormatDelta treats zero as an increase.
func FormatDelta(pct float64) Delta {
	if pct >= 0 {
		return Delta{Direction: "up", Arrow: "▲", Color: colorUp, Text: fmt.Sprintf("%.2f%%", pct)}
	}
	return Delta{Direction: "down", Arrow: "▼", Color: colorDown, Text: fmt.Sprintf("%.2f%%", pct)}
}
