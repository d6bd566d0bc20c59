package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/errors"
	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	analytics *services.Analytics
	sessions  *SessionManager
	maxUpload int64
	maxRows   int
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, sessions *SessionManager, cfg *config.Config, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		sessions:  sessions,
		maxUpload: cfg.Ingest.MaxUploadBytes,
		maxRows:   cfg.UI.MaxTableRows,
		logger:    logger,
	}
}

type dashboardResponse struct {
	Selection       models.FilterSelection `json:"selection"`
	Empty           bool                   `json:"empty"`
	Message         string                 `json:"message,omitempty"`
	LatestPeriod    models.PeriodKey       `json:"latest_period,omitempty"`
	PreviousPeriod  models.PeriodKey       `json:"previous_period,omitempty"`
	KPIs            []models.KPIValue      `json:"kpis"`
	Charts          models.ChartData       `json:"charts"`
	Columns         []string               `json:"columns"`
	Rows            [][]string             `json:"rows"`
	FilteredRecords int                    `json:"filtered_records"`
	TotalRecords    int                    `json:"total_records"`
}

type filtersResponse struct {
	Regions    []string               `json:"regions"`
	Categories []string               `json:"categories"`
	Selection  models.FilterSelection `json:"selection"`
}

func newDashboardResponse(view models.DashboardView, maxRows int) dashboardResponse {
	n := len(view.Rows)
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = view.Rows[i].Fields
	}
	return dashboardResponse{
		Selection:       view.Selection,
		Empty:           view.Empty,
		Message:         view.Message,
		LatestPeriod:    view.KPIs.LatestPeriod,
		PreviousPeriod:  view.KPIs.PreviousPeriod,
		KPIs:            view.KPIs.Values(),
		Charts:          view.Charts,
		Columns:         view.Header,
		Rows:            rows,
		FilteredRecords: len(view.Rows),
		TotalRecords:    view.TotalRecords,
	}
}

// HandleUpload ingests a multipart upload into the caller's session and
// returns the table summary.
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)
	requestID := observability.GetRequestID(r.Context())

	up, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}
	defer up.file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	table, err := h.analytics.Ingest(r.Context(), up.filename, up.file)
	if err != nil {
		errors.WriteError(w, h.logger, ingestError(err), requestID)
		return
	}

	sess.SetTable(table)
	errors.WriteSuccessWithHeaders(w, table.Summary(), map[string]string{
		"Cache-Control": "no-store",
	})
}

// HandleDashboard computes the dashboard for the session's table. The
// selection comes from the region and category query parameters and is not
// stored in the session.
func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)
	requestID := observability.GetRequestID(r.Context())

	table := sess.Table()
	if table == nil {
		errors.WriteError(w, h.logger, errors.NotFound("No sales data has been uploaded for this session"), requestID)
		return
	}

	view, err := h.analytics.Compute(r.Context(), table, ParseSelection(r.URL.Query(), table))
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to compute dashboard"), requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, newDashboardResponse(view, h.maxRows), map[string]string{
		"Cache-Control": "no-store",
	})
}

// HandleFilters lists the values available for filtering and the session's
// current selection.
func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	sess, r := h.sessions.Resolve(w, r)

	table, sel := sess.Snapshot()
	if table == nil {
		errors.WriteError(w, h.logger, errors.NotFound("No sales data has been uploaded for this session"),
			observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccessWithHeaders(w, filtersResponse{
		Regions:    table.Regions(),
		Categories: table.Categories(),
		Selection:  sel,
	}, map[string]string{
		"Cache-Control": "no-store",
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()
	stats["active_sessions"] = h.sessions.Count()

	errors.WriteSuccess(w, stats)
}
