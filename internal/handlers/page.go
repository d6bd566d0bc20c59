package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/services"
	"sales-kpi-dashboard/internal/ui/format"
	"sales-kpi-dashboard/internal/ui/templates"
)

// presenter turns a table and selection into template data. Every call runs
// the full pipeline; nothing is cached.
type presenter struct {
	analytics *services.Analytics
	formatter *format.Formatter
	ui        config.UIConfig
}

func newPresenter(analytics *services.Analytics, ui config.UIConfig) *presenter {
	return &presenter{
		analytics: analytics,
		formatter: format.New(ui.CurrencySymbol),
		ui:        ui,
	}
}

// page also returns the computed view; it is zero when table is nil.
func (p *presenter) page(ctx context.Context, table *models.SalesTable, sel models.FilterSelection) (templates.PageData, models.DashboardView, error) {
	data := templates.PageData{Title: p.ui.Title}
	if table == nil {
		return data, models.DashboardView{}, nil
	}

	view, err := p.analytics.Compute(ctx, table, sel)
	if err != nil {
		return data, models.DashboardView{}, err
	}
	dash, err := templates.NewDashboardData(view, p.formatter, p.ui.MaxTableRows)
	if err != nil {
		return data, models.DashboardView{}, err
	}
	signals, err := selectionSignals(sel)
	if err != nil {
		return data, models.DashboardView{}, err
	}

	data.Source = table.Source
	data.HasTable = true
	data.Filters = templates.NewFilterData(table, sel, string(signals))
	data.Dashboard = dash
	return data, view, nil
}

func selectionSignals(sel models.FilterSelection) ([]byte, error) {
	b, err := json.Marshal(sel.Clone())
	if err != nil {
		return nil, fmt.Errorf("marshal selection signals: %w", err)
	}
	return b, nil
}

type PageHandlers struct {
	present   *presenter
	sessions  *SessionManager
	maxUpload int64
	logger    *slog.Logger
}

func NewPageHandlers(analytics *services.Analytics, sessions *SessionManager, cfg *config.Config, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		present:   newPresenter(analytics, cfg.UI),
		sessions:  sessions,
		maxUpload: cfg.Ingest.MaxUploadBytes,
		logger:    logger,
	}
}

// HandleIndex renders the dashboard for the caller's session, or the upload
// prompt when the session has no table.
func (h *PageHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)
	table, sel := sess.Snapshot()

	data, _, err := h.present.page(r.Context(), table, sel)
	if err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Error("build dashboard page", "error", err)
		data = templates.PageData{Title: h.present.ui.Title, Error: "The dashboard could not be rendered"}
		h.render(w, r, http.StatusInternalServerError, data)
		return
	}
	h.render(w, r, http.StatusOK, data)
}

// HandleUpload replaces the session's table with the uploaded file and
// redirects to the dashboard. A rejected file re-renders the page with only
// the error and the upload form; the session keeps its previous table.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)
	logger := observability.LoggerFrom(r.Context(), h.logger)

	up, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer up.file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	table, err := h.present.analytics.Ingest(r.Context(), up.filename, up.file)
	if err != nil {
		h.renderError(w, r, ingestError(err))
		return
	}

	sess.SetTable(table)
	logger.Info("session table replaced", "file", up.filename, "records", table.Len())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if appErr := asAppError(err); appErr != nil {
		status = appErr.StatusCode
	}
	h.render(w, r, status, templates.PageData{
		Title: h.present.ui.Title,
		Error: userMessage(err),
	})
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, data templates.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := templates.Page(data).Render(r.Context(), w); err != nil {
		observability.LoggerFrom(r.Context(), h.logger).Error("render page", "error", err)
	}
}
