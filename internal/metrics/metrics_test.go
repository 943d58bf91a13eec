package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"binwatch-backend/internal/events"
	"binwatch-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type staticSource []models.BinState

func (s staticSource) ReadAll() []models.BinState { return s }

func organicAt(fill int) staticSource {
	return staticSource{{
		BinID:          3,
		Name:           "Organic",
		CapacityLiters: models.DefaultCapacityLiters,
		FillLevel:      fill,
		Status:         models.StatusFor(fill),
		VolumeLiters:   models.VolumeLiters(fill, models.DefaultCapacityLiters),
	}}
}

func TestFleetCollector(t *testing.T) {
	c := newFleetCollector(organicAt(73))

	expected := `
# HELP binwatch_bin_fill_level Current fill level of each bin in percent.
# TYPE binwatch_bin_fill_level gauge
binwatch_bin_fill_level{bin_id="3",bin_name="Organic"} 73
# HELP binwatch_bin_volume_liters Current waste volume of each bin in liters.
# TYPE binwatch_bin_volume_liters gauge
binwatch_bin_volume_liters{bin_id="3",bin_name="Organic"} 3.65
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"binwatch_bin_fill_level", "binwatch_bin_volume_liters"); err != nil {
		t.Error(err)
	}

	// one status series per band
	if n := testutil.CollectAndCount(c, "binwatch_bin_status"); n != 3 {
		t.Errorf("status series: got %d, want 3", n)
	}
}

func TestSendCountsEventsAndEntries(t *testing.T) {
	m := New(organicAt(0))

	m.Send(context.Background(), events.Event{
		Type: events.TypeBinsEmptied,
		Entries: []models.HistoryEntry{
			{ID: 1, Action: models.ActionEmptied},
			{ID: 2, Action: models.ActionEmptied},
		},
	})
	m.Send(context.Background(), events.Event{
		Type:    events.TypeBinEmptied,
		Entries: []models.HistoryEntry{{ID: 3, Action: models.ActionCollected}},
	})
	m.Send(context.Background(), events.Event{Type: events.TypeReading})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"bins_emptied events", testutil.ToFloat64(m.eventsTotal.WithLabelValues("bins_emptied")), 1},
		{"bin_reading events", testutil.ToFloat64(m.eventsTotal.WithLabelValues("bin_reading")), 1},
		{"emptied entries", testutil.ToFloat64(m.entriesTotal.WithLabelValues("Emptied")), 2},
		{"collected entries", testutil.ToFloat64(m.entriesTotal.WithLabelValues("Collected")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New(organicAt(0))

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/bins/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "9"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bins/"+id, nil))
	}

	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("series: got %d, want 1", n)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(organicAt(95))
	var dropped int64 = 4
	m.TrackDropped(func() int64 { return dropped })

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`binwatch_bin_status{bin_id="3",status="critical"} 1`,
		`binwatch_events_dropped_total 4`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
