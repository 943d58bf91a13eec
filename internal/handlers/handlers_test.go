package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"binwatch-backend/internal/database"
	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/metrics"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, seed map[int]int, archive ArchiveLister) (*engine.Engine, *httptest.Server) {
	t.Helper()

	eng := engine.New(engine.DefaultRegistry(),
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithSeed(seed),
	)
	srv := httptest.NewServer(NewRouter(RouterConfig{Engine: eng, Archive: archive}))
	t.Cleanup(srv.Close)
	return eng, srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var status int
	var out map[string]interface{}
	raw := doRaw(t, srv, method, path, body, &status)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: unmarshal %s: %v", method, path, raw, err)
		}
	}
	return status, out
}

func doRaw(t *testing.T, srv *httptest.Server, method, path, body string, status *int) []byte {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	*status = resp.StatusCode
	return []byte(buf.String())
}

func TestGetBins(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{1: 10, 2: 80, 3: 95}, nil)

	var status int
	raw := doRaw(t, srv, http.MethodGet, "/api/bins", "", &status)
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}

	var bins []map[string]interface{}
	if err := json.Unmarshal(raw, &bins); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(bins) != 4 {
		t.Fatalf("bins: got %d, want 4", len(bins))
	}
	want := []string{"normal", "warning", "critical", "normal"}
	for i, b := range bins {
		if b["status"] != want[i] {
			t.Errorf("bin %d status: got %v, want %s", i+1, b["status"], want[i])
		}
	}
	if bins[3]["last_emptied"] != "never" {
		t.Errorf("last_emptied: got %v", bins[3]["last_emptied"])
	}
}

func TestBinIDErrors(t *testing.T) {
	_, srv := newTestServer(t, nil, nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/bins/abc", http.StatusBadRequest},
		{http.MethodGet, "/api/bins/9", http.StatusNotFound},
		{http.MethodPost, "/api/bins/0/empty", http.StatusNotFound},
		{http.MethodPut, "/api/bins/7/threshold", http.StatusNotFound},
	}
	for _, tt := range tests {
		body := ""
		if tt.method == http.MethodPut {
			body = `{"percentage":80}`
		}
		status, out := do(t, srv, tt.method, tt.path, body)
		if status != tt.want {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, status, tt.want)
		}
		if out["success"] != false || out["error"] == "" {
			t.Errorf("%s %s: error body %v", tt.method, tt.path, out)
		}
	}
}

func TestRecordReadingClamps(t *testing.T) {
	eng, srv := newTestServer(t, nil, nil)

	status, out := do(t, srv, http.MethodPost, "/api/bins/2/readings", `{"fill_level":140}`)
	if status != http.StatusOK {
		t.Fatalf("status: got %d", status)
	}
	if out["fill_level"] != float64(100) || out["status"] != "critical" {
		t.Errorf("got %v", out)
	}
	if st, _ := eng.Read(2); st.FillLevel != 100 {
		t.Errorf("engine fill: got %d, want 100", st.FillLevel)
	}

	status, _ = do(t, srv, http.MethodPost, "/api/bins/2/readings", `{"fill_level":`)
	if status != http.StatusBadRequest {
		t.Errorf("bad json: got %d, want 400", status)
	}
}

func TestEmptyBin(t *testing.T) {
	eng, srv := newTestServer(t, map[int]int{3: 73}, nil)

	status, out := do(t, srv, http.MethodPost, "/api/bins/3/empty", "")
	if status != http.StatusOK {
		t.Fatalf("status: got %d", status)
	}
	if out["message"] != "Organic emptied at 10:00 AM at 73% capacity" {
		t.Errorf("message: got %v", out["message"])
	}
	entry, _ := out["entry"].(map[string]interface{})
	if entry["fillLevel"] != float64(73) || entry["volumeLiters"] != 3.65 || entry["action"] != "Emptied" {
		t.Errorf("entry: got %v", entry)
	}

	// second empty is a no-op
	_, out = do(t, srv, http.MethodPost, "/api/bins/3/empty", "")
	if out["already_empty"] != true || out["message"] != "Organic is already empty" {
		t.Errorf("second empty: got %v", out)
	}
	if _, ok := out["entry"]; ok {
		t.Error("already-empty response should not carry an entry")
	}
	if eng.HistoryLen() != 1 {
		t.Errorf("history: got %d, want 1", eng.HistoryLen())
	}
}

func TestCollectBin(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{1: 50}, nil)

	_, out := do(t, srv, http.MethodPost, "/api/bins/1/collect", "")
	entry, _ := out["entry"].(map[string]interface{})
	if entry["action"] != "Collected" {
		t.Errorf("action: got %v", entry["action"])
	}
}

func TestEmptyAll(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{2: 40, 3: 90}, nil)

	_, out := do(t, srv, http.MethodPost, "/api/bins/empty-all", "")
	if out["message"] != "All bins (Recycling, Organic) emptied at 10:00 AM" {
		t.Errorf("message: got %v", out["message"])
	}
	if entries, _ := out["entries"].([]interface{}); len(entries) != 2 {
		t.Errorf("entries: got %d, want 2", len(entries))
	}

	_, out = do(t, srv, http.MethodPost, "/api/bins/empty-all", "")
	if out["already_empty"] != true || out["message"] != "All bins are already empty" {
		t.Errorf("second empty-all: got %v", out)
	}
}

func TestThresholdAndAlerts(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{1: 60}, nil)

	status, out := do(t, srv, http.MethodPut, "/api/bins/1/threshold", `{"percentage":30}`)
	if status != http.StatusOK {
		t.Fatalf("status: got %d", status)
	}
	if out["threshold"] != float64(50) || out["enabled"] != true {
		t.Errorf("clamped setting: got %v", out)
	}

	_, out = do(t, srv, http.MethodGet, "/api/bins/1/alert", "")
	if out["triggered"] != true || out["priority"] != "high" || out["reason"] != "custom_threshold" {
		t.Errorf("alert: got %v", out)
	}

	do(t, srv, http.MethodPut, "/api/bins/1/alert", `{"enabled":false}`)
	_, out = do(t, srv, http.MethodGet, "/api/bins/1/alert", "")
	if out["triggered"] != false {
		t.Errorf("disabled alert: got %v", out)
	}
}

func TestAlertSettingsBulk(t *testing.T) {
	_, srv := newTestServer(t, nil, nil)

	var status int
	raw := doRaw(t, srv, http.MethodPut, "/api/alerts/settings", `{"enabled":true}`, &status)
	var settings []map[string]interface{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	if len(settings) != 4 {
		t.Fatalf("settings: got %d, want 4", len(settings))
	}
	for _, s := range settings {
		if s["enabled"] != true {
			t.Errorf("bin %v not enabled", s["bin_id"])
		}
	}

	raw = doRaw(t, srv, http.MethodGet, "/api/alerts", "", &status)
	if status != http.StatusOK || strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("alerts: got %d %s", status, raw)
	}
}

func TestScheduleConfirmation(t *testing.T) {
	_, srv := newTestServer(t, nil, nil)

	status, out := do(t, srv, http.MethodPut, "/api/schedule", `{"hours":500}`)
	if status != http.StatusOK || out["has_active_schedule"] != true {
		t.Fatalf("first save: got %d %v", status, out)
	}
	sched, _ := out["schedule"].(map[string]interface{})
	intervals, _ := sched["intervals"].(map[string]interface{})
	if intervals["1"] != float64(168) {
		t.Errorf("clamped interval: got %v", intervals)
	}

	status, out = do(t, srv, http.MethodPut, "/api/schedule", `{"hours":12}`)
	if status != http.StatusConflict || out["confirmation_required"] != true {
		t.Errorf("overwrite: got %d %v", status, out)
	}

	status, out = do(t, srv, http.MethodPut, "/api/schedule", `{"hours":12,"confirm":true}`)
	if status != http.StatusOK {
		t.Fatalf("confirmed: got %d", status)
	}
	sched, _ = out["schedule"].(map[string]interface{})
	intervals, _ = sched["intervals"].(map[string]interface{})
	if intervals["4"] != float64(12) {
		t.Errorf("overwritten interval: got %v", intervals)
	}
}

func TestHistoryWindow(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{1: 20, 4: 30}, nil)
	do(t, srv, http.MethodPost, "/api/bins/empty-all", "")

	_, out := do(t, srv, http.MethodGet, "/api/history?window=bogus", "")
	if out["window"] != "24h" || out["count"] != float64(2) {
		t.Errorf("history: got %v", out)
	}
	entries, _ := out["entries"].([]interface{})
	first, _ := entries[0].(map[string]interface{})
	if first["binName"] != "Glass" {
		t.Errorf("newest first: got %v", first["binName"])
	}
}

type fakeArchive struct {
	rows  []database.ArchivedEntry
	err   error
	since time.Time
	limit int
}

func (f *fakeArchive) List(ctx context.Context, since time.Time, limit int) ([]database.ArchivedEntry, error) {
	f.since, f.limit = since, limit
	return f.rows, f.err
}

func TestArchivedHistory(t *testing.T) {
	_, srv := newTestServer(t, nil, nil)
	status, _ := do(t, srv, http.MethodGet, "/api/history/archive", "")
	if status != http.StatusServiceUnavailable {
		t.Errorf("no archive: got %d, want 503", status)
	}

	archive := &fakeArchive{rows: []database.ArchivedEntry{{
		SessionID: "s1", EntryID: 4, BinID: 2, BinName: "Recycling",
		Action: "Emptied", FillLevel: 40, VolumeLiters: 2, RecordedAt: testNow.Unix(),
	}}}
	_, srv = newTestServer(t, nil, archive)

	status, out := do(t, srv, http.MethodGet, "/api/history/archive?window=1w&limit=5", "")
	if status != http.StatusOK || out["count"] != float64(1) {
		t.Fatalf("archive: got %d %v", status, out)
	}
	if archive.limit != 5 || !archive.since.Equal(testNow.AddDate(0, 0, -7)) {
		t.Errorf("query: since %v limit %d", archive.since, archive.limit)
	}

	status, _ = do(t, srv, http.MethodGet, "/api/history/archive?limit=-1", "")
	if status != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", status)
	}

	archive.err = errors.New("db down")
	status, _ = do(t, srv, http.MethodGet, "/api/history/archive", "")
	if status != http.StatusInternalServerError {
		t.Errorf("archive failure: got %d, want 500", status)
	}
}

func TestResetAndDashboard(t *testing.T) {
	_, srv := newTestServer(t, map[int]int{2: 95}, nil)
	do(t, srv, http.MethodPost, "/api/bins/3/readings", `{"fill_level":80}`)
	do(t, srv, http.MethodPut, "/api/schedule", `{"hours":24}`)

	_, out := do(t, srv, http.MethodGet, "/api/dashboard", "")
	attention, _ := out["attention"].(map[string]interface{})
	if attention["total"] != float64(2) || attention["critical"] != float64(1) {
		t.Errorf("attention: got %v", attention)
	}
	next, _ := out["next_collection"].(map[string]interface{})
	if next["timeframe"] != "15min" {
		t.Errorf("next collection: got %v", next)
	}
	usage, _ := out["fleet_usage"].(map[string]interface{})
	if usage["used_liters"] != 8.75 || usage["capacity_liters"] != float64(20) || usage["percent"] != 43.8 {
		t.Errorf("fleet usage: got %v", usage)
	}

	_, out = do(t, srv, http.MethodPost, "/api/reset", "")
	if out["success"] != true || out["history_cleared"] != false {
		t.Errorf("reset: got %v", out)
	}
	bins, _ := out["bins"].([]interface{})
	second, _ := bins[1].(map[string]interface{})
	if second["fill_level"] != float64(95) {
		t.Errorf("reset restores seed: got %v", second["fill_level"])
	}

	_, out = do(t, srv, http.MethodGet, "/api/schedule", "")
	if out["has_active_schedule"] != false {
		t.Errorf("schedule after reset: got %v", out)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	eng := engine.New(engine.DefaultRegistry())
	srv := httptest.NewServer(NewRouter(RouterConfig{Engine: eng, Metrics: metrics.New(eng)}))
	defer srv.Close()

	var status int
	if raw := doRaw(t, srv, http.MethodGet, "/health", "", &status); string(raw) != "OK" {
		t.Errorf("health: got %q", raw)
	}
	raw := doRaw(t, srv, http.MethodGet, "/metrics", "", &status)
	if status != http.StatusOK || !strings.Contains(string(raw), "binwatch_bin_fill_level") {
		t.Errorf("metrics: got %d", status)
	}
}
