package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/services"
)

const salesCSV = `Order_ID,Order_Date,Region,Category,Sales,Profit
O-1,2024-02-03,North,Furniture,100,10
O-2,2024-02-17,South,Technology,50,-5
O-3,2024-03-01,North,Technology,200,40
O-4,2024-03-09,South,Furniture,300,30
O-5,2024-01-20,East,Office,75,7.5
`

type testEnv struct {
	cfg      *config.Config
	store    *services.SessionStore
	sessions *SessionManager
	api      *APIHandlers
	sse      *SSEHandlers
	pages    *PageHandlers
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	store, err := services.NewSessionStore(16)
	if err != nil {
		t.Fatal(err)
	}
	tel := observability.NoopTelemetry()
	metrics, err := observability.NewMetrics(tel.Meter)
	if err != nil {
		t.Fatal(err)
	}
	analytics := services.NewAnalytics(
		services.WithLogger(testLogger()),
		services.WithTracer(tel.Tracer),
		services.WithMetrics(metrics),
	)
	sm := NewSessionManager(store, cfg.Sessions)
	return &testEnv{
		cfg:      cfg,
		store:    store,
		sessions: sm,
		api:      NewAPIHandlers(analytics, sm, cfg, testLogger()),
		sse:      NewSSEHandlers(analytics, sm, cfg, testLogger()),
		pages:    NewPageHandlers(analytics, sm, cfg, testLogger()),
	}
}

func multipartUpload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func withCookie(r *http.Request, c *http.Cookie) *http.Request {
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "kpi_session" {
			return c
		}
	}
	return nil
}

// uploadSample uploads salesCSV through the API and returns the session cookie.
func (e *testEnv) uploadSample(t *testing.T) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	e.api.HandleUpload(w, multipartUpload(t, "/api/upload", "sales.csv", salesCSV))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	c := sessionCookie(t, w)
	if c == nil {
		t.Fatal("upload should issue a session cookie")
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestAPIHandlers_HandleUpload(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.api.HandleUpload(w, multipartUpload(t, "/api/upload", "sales.csv", salesCSV))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if !resp.Success {
		t.Fatal("expected success=true")
	}

	var summary struct {
		Records    int      `json:"records"`
		Columns    []string `json:"columns"`
		Regions    []string `json:"regions"`
		Categories []string `json:"categories"`
		Periods    []string `json:"periods"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Records != 5 || len(summary.Columns) != 6 {
		t.Errorf("summary = %+v", summary)
	}
	if diff := cmp.Diff([]string{"2024-01", "2024-02", "2024-03"}, summary.Periods); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}
	if env.store.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.store.Len())
	}
}

func TestAPIHandlers_HandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"schema", "a.csv", "Order_Date,Region,Sales\n2024-01-01,A,1\n", http.StatusBadRequest, "SCHEMA_ERROR"},
		{"date", "a.csv", "Order_Date,Region,Category,Sales,Profit\nsoon,A,X,1,1\n", http.StatusBadRequest, "DATE_FORMAT_ERROR"},
		{"parse", "a.csv", "Order_Date,Region,Category,Sales,Profit\n2024-01-01,A,X,abc,1\n", http.StatusBadRequest, "PARSE_ERROR"},
		{"empty", "a.csv", "", http.StatusBadRequest, "PARSE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := httptest.NewRecorder()
			env.api.HandleUpload(w, multipartUpload(t, "/api/upload", tt.filename, tt.content))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			resp := decode(t, w)
			if resp.Success || resp.Error.Code != tt.code {
				t.Errorf("response = %+v, want code %s", resp, tt.code)
			}
			if resp.Error.Details == "" {
				t.Error("ingestion errors should carry details for the user")
			}
		})
	}
}

func TestAPIHandlers_HandleUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.api.maxUpload = 64

	w := httptest.NewRecorder()
	env.api.HandleUpload(w, multipartUpload(t, "/api/upload", "sales.csv", salesCSV))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
	if resp := decode(t, w); resp.Error.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestAPIHandlers_HandleUpload_MissingField(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()
	r := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	env.api.HandleUpload(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func getDashboard(t *testing.T, env *testEnv, c *http.Cookie, query string) dashboardResponse {
	t.Helper()
	w := httptest.NewRecorder()
	env.api.HandleDashboard(w, withCookie(httptest.NewRequest(http.MethodGet, "/api/dashboard?"+query, nil), c))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var view dashboardResponse
	if err := json.Unmarshal(decode(t, w).Data, &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func TestAPIHandlers_HandleDashboard(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	view := getDashboard(t, env, c, "")
	if view.Empty || view.FilteredRecords != 5 || view.TotalRecords != 5 {
		t.Errorf("view = %+v", view)
	}
	if view.LatestPeriod != "2024-03" || view.PreviousPeriod != "2024-02" {
		t.Errorf("periods = %q/%q", view.LatestPeriod, view.PreviousPeriod)
	}
	if len(view.KPIs) != 4 || view.KPIs[0].Value != 500 || view.KPIs[2].Value != 5 {
		t.Errorf("kpis = %+v", view.KPIs)
	}
	if len(view.Charts.ByRegion) != 3 || view.Charts.ByRegion[0].Key != "East" {
		t.Errorf("by region = %+v", view.Charts.ByRegion)
	}
	if view.Rows[0][0] != "O-1" {
		t.Errorf("passthrough column lost: %v", view.Rows[0])
	}
}

func TestAPIHandlers_HandleDashboard_Selection(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	q := url.Values{"region": {"North"}, "category": {"Furniture", "Technology"}}
	view := getDashboard(t, env, c, q.Encode())
	if view.FilteredRecords != 2 {
		t.Errorf("filtered = %d, want 2", view.FilteredRecords)
	}
	if view.KPIs[0].Value != 200 || view.KPIs[0].Delta == nil || *view.KPIs[0].Delta != 100 {
		t.Errorf("sales card = %+v", view.KPIs[0])
	}

	view = getDashboard(t, env, c, "region=")
	if !view.Empty || view.Message == "" {
		t.Errorf("empty region set should give the empty view, got %+v", view)
	}
	if view.KPIs[0].Value != 0 || view.FilteredRecords != 0 {
		t.Errorf("empty view kpis = %+v", view.KPIs)
	}
}

func TestAPIHandlers_HeaderOnlyUploadGivesEmptyView(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.api.HandleUpload(w, multipartUpload(t, "/api/upload", "empty.csv", "Order_Date,Region,Category,Sales,Profit\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("header-only upload status = %d, body = %s", w.Code, w.Body.String())
	}

	view := getDashboard(t, env, sessionCookie(t, w), "")
	if !view.Empty || view.TotalRecords != 0 {
		t.Errorf("view = %+v, want the empty view", view)
	}
}

func TestAPIHandlers_HandleDashboard_NoTable(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.api.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPIHandlers_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.uploadSample(t)

	w := httptest.NewRecorder()
	env.api.HandleFilters(w, httptest.NewRequest(http.MethodGet, "/api/filters", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("a new session should not see another session's upload, status = %d", w.Code)
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	w := httptest.NewRecorder()
	env.api.HandleFilters(w, withCookie(httptest.NewRequest(http.MethodGet, "/api/filters", nil), c))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var filters filtersResponse
	if err := json.Unmarshal(decode(t, w).Data, &filters); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"North", "South", "East"}, filters.Regions); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filters.Regions, filters.Selection.Regions); diff != "" {
		t.Errorf("fresh upload should select every region (-want +got):\n%s", diff)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.api.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	env := newTestEnv(t)
	env.uploadSample(t)

	w := httptest.NewRecorder()
	env.api.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var stats map[string]any
	if err := json.Unmarshal(decode(t, w).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["uploads"] != float64(1) || stats["active_sessions"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestParseSelection(t *testing.T) {
	table, err := services.ParseCSV(t.Context(), "s.csv", strings.NewReader(salesCSV), services.DefaultIngestOptions())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		query   string
		regions []string
		cats    []string
	}{
		{"absent means all", "", []string{"North", "South", "East"}, []string{"Furniture", "Technology", "Office"}},
		{"present empty means none", "region=&category=Office", []string{}, []string{"Office"}},
		{"unknown values dropped", "region=Mars&region=East&region=East", []string{"East"}, []string{"Furniture", "Technology", "Office"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			sel := ParseSelection(q, table)
			if diff := cmp.Diff(tt.regions, sel.Regions); diff != "" {
				t.Errorf("regions mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.cats, sel.Categories); diff != "" {
				t.Errorf("categories mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
