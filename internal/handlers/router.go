package handlers

import (
	"net/http"

	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/metrics"
	"binwatch-backend/internal/middleware"
	"binwatch-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the dependencies served over HTTP. Hub, Metrics and
// Archive are optional.
type RouterConfig struct {
	Engine  *engine.Engine
	Hub     *websocket.Hub
	Metrics *metrics.Metrics
	Archive ArchiveLister
}

func NewRouter(cfg RouterConfig) http.Handler {
	eng := cfg.Engine
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// Live dashboard updates
	if cfg.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(cfg.Hub))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", GetDashboard(eng))
		r.Post("/reset", ResetEngine(eng))

		// Bins
		r.Get("/bins", GetBins(eng))
		r.Post("/bins/empty-all", EmptyAllBins(eng))
		r.Route("/bins/{id}", func(r chi.Router) {
			r.Get("/", GetBin(eng))
			r.Post("/readings", RecordReading(eng))
			r.Post("/empty", EmptyBin(eng))
			r.Post("/collect", CollectBin(eng))
			r.Get("/alert", GetBinAlert(eng))
			r.Put("/alert", SetBinAlert(eng))
			r.Put("/threshold", SetThreshold(eng))
		})

		// Alerts
		r.Get("/alerts", GetAlerts(eng))
		r.Get("/alerts/settings", GetAlertSettings(eng))
		r.Put("/alerts/settings", UpdateAlertSettings(eng))

		// Collection schedule
		r.Get("/schedule", GetSchedule(eng))
		r.Put("/schedule", SetSchedule(eng))

		// History
		r.Get("/history", GetHistory(eng))
		r.Get("/history/archive", GetArchivedHistory(eng, cfg.Archive))
	})

	return r
}
