package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/errors"
	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/services"
	"sales-kpi-dashboard/internal/ui/templates"
)

// filterSignals mirrors the Datastar signals bound to the filter selects. A
// nil field means the signal was not sent.
type filterSignals struct {
	Regions    *[]string `json:"regions"`
	Categories *[]string `json:"categories"`
}

type SSEHandlers struct {
	present  *presenter
	sessions *SessionManager
	logger   *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, sessions *SessionManager, cfg *config.Config, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		present:  newPresenter(analytics, cfg.UI),
		sessions: sessions,
		logger:   logger,
	}
}

// HandleDashboard applies the selection carried by the Datastar signals to
// the session and patches the status, KPI, chart and table fragments.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)
	logger := observability.LoggerFrom(r.Context(), h.logger)

	var signals filterSignals
	if r.Method != http.MethodGet || r.URL.Query().Has("datastar") {
		if err := datastar.ReadSignals(r, &signals); err != nil {
			errors.WriteError(w, h.logger, errors.BadRequest("Invalid Datastar signals"),
				observability.GetRequestID(r.Context()))
			return
		}
	}

	table, current := sess.Snapshot()
	sel := mergeSelection(table, current, signals)
	if table != nil && !sess.SetSelectionFor(table, sel) {
		// An upload landed in between; show the new table with its own
		// default selection.
		table, sel = sess.Snapshot()
	}

	data, view, err := h.present.page(r.Context(), table, sel)
	if err != nil {
		logger.Error("build dashboard fragments", "error", err)
		data = templates.PageData{Title: h.present.ui.Title, Error: "The dashboard could not be rendered"}
	}

	sse := datastar.NewSSE(w, r)

	fragments := []templ.Component{templates.Status(data)}
	if data.HasTable {
		fragments = append(fragments,
			templates.KPIs(data.Dashboard),
			templates.Charts(data.Dashboard),
			templates.Table(data.Dashboard),
		)
	}
	for _, c := range fragments {
		if err := patch(r.Context(), sse, c); err != nil {
			logger.Error("patch fragment", "error", err)
			return
		}
	}

	if !data.HasTable {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"regions":    sel.Regions,
		"categories": sel.Categories,
		"chartData":  view.Charts,
	})
	if err != nil {
		logger.Error("marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		logger.Error("patch signals", "error", err)
	}
}

func patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) error {
	html, err := templates.RenderString(ctx, c)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}
	return sse.PatchElements(html)
}

// mergeSelection overlays the signals that were sent on the session's
// current selection and drops values unknown to the table.
func mergeSelection(table *models.SalesTable, current models.FilterSelection, s filterSignals) models.FilterSelection {
	sel := current.Clone()
	if s.Regions != nil {
		sel.Regions = *s.Regions
	}
	if s.Categories != nil {
		sel.Categories = *s.Categories
	}
	return services.SanitizeSelection(table, sel)
}
