// Package simulator stands in for bin sensors during development by
// feeding random fill increments into the engine.
package simulator

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"binwatch-backend/internal/models"
)

// Target is the part of the engine the simulator drives.
type Target interface {
	ReadAll() []models.BinState
	ApplyReading(binID, fillLevel int) (models.BinState, error)
}

const (
	// Largest per-tick increase for a single bin
	maxIncrement = 8

	// Chance a bin gets any waste on a tick
	fillChance = 0.6

	DefaultInterval = 30 * time.Second
)

type Simulator struct {
	target   Target
	interval time.Duration
	rng      *rand.Rand
}

// New builds a simulator. A non-positive interval falls back to
// DefaultInterval.
func New(target Target, interval time.Duration, seed int64) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{
		target:   target,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run steps on every tick until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[SIMULATOR] Started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("[SIMULATOR] Stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step raises some bins by a random amount. Full bins are left alone so
// the simulator never produces readings above 100.
func (s *Simulator) Step() int {
	changed := 0
	for _, st := range s.target.ReadAll() {
		if st.FillLevel >= models.MaxFillLevel || s.rng.Float64() >= fillChance {
			continue
		}

		level := models.ClampFillLevel(st.FillLevel + 1 + s.rng.Intn(maxIncrement))
		if _, err := s.target.ApplyReading(st.BinID, level); err != nil {
			slog.Error("[SIMULATOR] Reading rejected", "bin_id", st.BinID, "error", err)
			continue
		}
		changed++
		slog.Debug("[SIMULATOR] Reading applied", "bin_id", st.BinID, "fill_level", level)
	}
	return changed
}
