package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"binwatch-backend/internal/database"
	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/events"
	"binwatch-backend/internal/handlers"
	"binwatch-backend/internal/metrics"
	"binwatch-backend/internal/services"
	"binwatch-backend/internal/simulator"
	"binwatch-backend/internal/websocket"
	"binwatch-backend/pkg/config"
	"binwatch-backend/pkg/logging"

	"github.com/google/uuid"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.Server.LogLevel))

	slog.Info("BinWatch backend starting", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bin registry
	registry := engine.DefaultRegistry()
	if len(cfg.Fleet.BinNames) > 0 {
		registry, err = engine.RegistryWithNames(cfg.Fleet.BinNames)
		if err != nil {
			slog.Error("Invalid BIN_NAMES", "error", err)
			os.Exit(1)
		}
	}

	// Events fan out to sinks registered below
	dispatcher := events.NewDispatcher(cfg.Events.Buffer)

	resetPolicy := engine.RetainHistory
	if cfg.Fleet.ResetClearsHistory {
		resetPolicy = engine.ClearHistory
	}
	eng := engine.New(registry,
		engine.WithNotifier(dispatcher),
		engine.WithSeed(cfg.Fleet.SeedLevels),
		engine.WithResetPolicy(resetPolicy),
	)
	slog.Info("Engine ready", "bins", registry.Len(), "reset_clears_history", cfg.Fleet.ResetClearsHistory)

	// Metrics
	m := metrics.New(eng)
	m.TrackDropped(dispatcher.Dropped)
	dispatcher.AddSink(m)

	// WebSocket hub
	hub := websocket.NewHub(func() interface{} { return eng.Snapshot() })
	dispatcher.AddSink(hub)

	// Optional history archive
	var archive handlers.ArchiveLister
	if cfg.Database.Enabled() {
		db, err := database.Connect(cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			slog.Error("Database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			slog.Error("Database migrations failed", "error", err)
			os.Exit(1)
		}

		historyArchive := database.NewHistoryArchive(db, uuid.NewString())
		dispatcher.AddSink(historyArchive)
		archive = historyArchive
		slog.Info("History archive enabled", "driver", cfg.Database.Driver, "session_id", historyArchive.SessionID())
	}

	// Optional event feeds
	if cfg.Redis.Enabled() {
		client, err := services.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Warn("Redis feed disabled", "error", err)
		} else {
			defer client.Close()
			dispatcher.AddSink(services.NewRedisFeed(client, cfg.Redis.Channel))
		}
	}
	if cfg.Kafka.Enabled() {
		feed := services.NewKafkaFeed(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer feed.Close()
		dispatcher.AddSink(feed)
	}

	// Stopped after the HTTP server; the dispatcher drains its queue first.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	hubCtx, stopHub := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	var wg sync.WaitGroup
	if cfg.Simulator.Enabled {
		sim := simulator.New(eng, cfg.Simulator.Interval, time.Now().UnixNano())
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Engine:  eng,
			Hub:     hub,
			Metrics: m,
			Archive: archive,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "address", srv.Addr, "url", "http://localhost"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	wg.Wait()

	stopDispatch()
	<-dispatchDone
	stopHub()
	<-hubDone

	slog.Info("Server stopped", "events_dropped", dispatcher.Dropped())
}
