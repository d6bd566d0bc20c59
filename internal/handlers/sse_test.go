package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/services"
)

func sseRequest(signals string, c *http.Cookie) *http.Request {
	target := "/sse/dashboard"
	if signals != "" {
		target += "?" + url.Values{"datastar": {signals}}.Encode()
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Datastar-Request", "true")
	return withCookie(r, c)
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	w := httptest.NewRecorder()
	env.sse.HandleDashboard(w, sseRequest(`{"regions":["North"],"categories":["Furniture","Technology"]}`, c))

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"datastar-patch-elements",
		`id="status"`,
		`id="kpis"`,
		`id="charts"`,
		`id="data-table"`,
		"datastar-patch-signals",
		"chartData",
		"₹ 200",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream should contain %q", want)
		}
	}

	sess, ok := env.store.Get(c.Value)
	if !ok {
		t.Fatal("session missing")
	}
	_, sel := sess.Snapshot()
	want := models.FilterSelection{Regions: []string{"North"}, Categories: []string{"Furniture", "Technology"}}
	if diff := cmp.Diff(want, sel); diff != "" {
		t.Errorf("stored selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSSEHandlers_HandleDashboard_EmptySelection(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	w := httptest.NewRecorder()
	env.sse.HandleDashboard(w, sseRequest(`{"regions":[],"categories":["Office"]}`, c))

	body := w.Body.String()
	if !strings.Contains(body, services.EmptySelectionMessage) {
		t.Error("empty selection should patch the informational message")
	}
	if strings.Contains(body, "<img") {
		t.Error("empty selection should not render charts")
	}
}

func TestSSEHandlers_HandleDashboard_PartialSignals(t *testing.T) {
	env := newTestEnv(t)
	c := env.uploadSample(t)

	w := httptest.NewRecorder()
	env.sse.HandleDashboard(w, sseRequest(`{"categories":["Office"]}`, c))

	sess, _ := env.store.Get(c.Value)
	_, sel := sess.Snapshot()
	if diff := cmp.Diff([]string{"North", "South", "East"}, sel.Regions); diff != "" {
		t.Errorf("unsent signal should keep the current regions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Office"}, sel.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestSSEHandlers_HandleDashboard_NoTable(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.sse.HandleDashboard(w, sseRequest("", nil))

	body := w.Body.String()
	if !strings.Contains(body, "Please upload a sales CSV file to continue") {
		t.Errorf("stream = %s", body)
	}
	if strings.Contains(body, `id="kpis"`) {
		t.Error("no KPI fragment should be sent without a table")
	}
	if sessionCookie(t, w) == nil {
		t.Error("a new session should get a cookie")
	}
}

func TestSSEHandlers_HandleDashboard_BadSignals(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.sse.HandleDashboard(w, sseRequest(`{not json`, nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMergeSelection(t *testing.T) {
	table := &models.SalesTable{Records: []models.SalesRecord{
		{Region: "North", Category: "A"},
		{Region: "South", Category: "B"},
	}}
	current := models.FilterSelection{Regions: []string{"North", "South"}, Categories: []string{"A", "B"}}
	none := []string{}
	unknown := []string{"B", "Z"}

	got := mergeSelection(table, current, filterSignals{Regions: &none, Categories: &unknown})

	want := models.FilterSelection{Regions: []string{}, Categories: []string{"B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mergeSelection() mismatch (-want +got):\n%s", diff)
	}
}
