// Package metrics exposes live bin levels and event counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"binwatch-backend/internal/events"
	"binwatch-backend/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "binwatch"

// BinSource is read on every scrape.
type BinSource interface {
	ReadAll() []models.BinState
}

type Metrics struct {
	registry *prometheus.Registry

	eventsTotal     *prometheus.CounterVec
	entriesTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New(source BinSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Engine events published, by type.",
		}, []string{"type"}),
		entriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_total",
			Help:      "History ledger entries appended, by action.",
		}, []string{"action"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.eventsTotal,
		m.entriesTotal,
		m.requestDuration,
		newFleetCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackDropped exports the dispatcher's dropped-event count.
func (m *Metrics) TrackDropped(dropped func() int64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events discarded because the dispatch queue was full.",
	}, func() float64 { return float64(dropped()) }))
}

func (m *Metrics) Name() string { return "metrics" }

// Send counts the event and any ledger entries it carries.
func (m *Metrics) Send(_ context.Context, e events.Event) error {
	m.eventsTotal.WithLabelValues(string(e.Type)).Inc()
	for _, entry := range e.Entries {
		m.entriesTotal.WithLabelValues(string(entry.Action)).Inc()
	}
	return nil
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// fleetCollector reports per-bin gauges straight from the engine so the
// values are never stale.
type fleetCollector struct {
	source BinSource

	fill   *prometheus.Desc
	volume *prometheus.Desc
	status *prometheus.Desc
}

func newFleetCollector(source BinSource) *fleetCollector {
	return &fleetCollector{
		source: source,
		fill: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bin", "fill_level"),
			"Current fill level of each bin in percent.",
			[]string{"bin_id", "bin_name"}, nil,
		),
		volume: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bin", "volume_liters"),
			"Current waste volume of each bin in liters.",
			[]string{"bin_id", "bin_name"}, nil,
		),
		status: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bin", "status"),
			"1 for the bin's current status band, 0 otherwise.",
			[]string{"bin_id", "status"}, nil,
		),
	}
}

func (c *fleetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fill
	ch <- c.volume
	ch <- c.status
}

func (c *fleetCollector) Collect(ch chan<- prometheus.Metric) {
	bands := []models.Status{models.StatusNormal, models.StatusWarning, models.StatusCritical}

	for _, st := range c.source.ReadAll() {
		id := strconv.Itoa(st.BinID)
		ch <- prometheus.MustNewConstMetric(c.fill, prometheus.GaugeValue, float64(st.FillLevel), id, st.Name)
		ch <- prometheus.MustNewConstMetric(c.volume, prometheus.GaugeValue, st.VolumeLiters, id, st.Name)
		for _, band := range bands {
			v := 0.0
			if st.Status == band {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, v, id, string(band))
		}
	}
}
