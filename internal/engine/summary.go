package engine

import (
	"fmt"
	"math"
	"time"

	"binwatch-backend/internal/models"
)

// Snapshot is one consistent read of everything a dashboard renders.
type Snapshot struct {
	Bins           []models.BinState     `json:"bins"`
	Alerts         []models.Alert        `json:"alerts"`
	AlertSettings  []models.AlertSetting `json:"alert_settings"`
	Schedule       models.Schedule       `json:"schedule"`
	Reminders      []models.Reminder     `json:"reminders"`
	Attention      models.Attention      `json:"attention"`
	NextCollection models.NextCollection `json:"next_collection"`
	FleetUsage     models.FleetUsage     `json:"fleet_usage"`
	HistoryCount   int                   `json:"history_count"`
	GeneratedAt    time.Time             `json:"generated_at"`

	// Seq is the last event folded into this snapshot. Events with a
	// lower or equal Seq are already reflected in it.
	Seq uint64 `json:"seq"`
}

// Snapshot reads all engine state under a single read lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.clock()
	states := e.store.readAll()
	return Snapshot{
		Bins:           states,
		Alerts:         collectAlerts(e.alerts, states),
		AlertSettings:  e.alerts.settings(e.registry.bins),
		Schedule:       e.schedule.view(),
		Reminders:      e.schedule.reminders(states, now),
		Attention:      attention(states),
		NextCollection: nextCollection(states),
		FleetUsage:     fleetUsage(states),
		HistoryCount:   e.ledger.len(),
		GeneratedAt:    now,
		Seq:            e.seq,
	}
}

// Attention counts bins in the warning and critical bands.
func (e *Engine) Attention() models.Attention {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return attention(e.store.readAll())
}

// NextCollection names the bin that most needs emptying.
func (e *Engine) NextCollection() models.NextCollection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return nextCollection(e.store.readAll())
}

// FleetUsage sums volume and capacity over every bin.
func (e *Engine) FleetUsage() models.FleetUsage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fleetUsage(e.store.readAll())
}

func fleetUsage(states []models.BinState) models.FleetUsage {
	var u models.FleetUsage
	for _, st := range states {
		u.UsedLiters += st.VolumeLiters
		u.CapacityLiters += st.CapacityLiters
	}
	u.UsedLiters = math.Round(u.UsedLiters*100) / 100
	u.CapacityLiters = math.Round(u.CapacityLiters*100) / 100
	if u.CapacityLiters > 0 {
		u.Percent = math.Round(u.UsedLiters/u.CapacityLiters*1000) / 10
	}
	return u
}

func attention(states []models.BinState) models.Attention {
	var a models.Attention
	for _, st := range states {
		switch st.Status {
		case models.StatusCritical:
			a.Critical++
		case models.StatusWarning:
			a.Warning++
		}
	}
	a.Total = a.Critical + a.Warning
	return a
}

// nextCollection picks the fullest critical bin, else the fullest warning
// bin. On equal fill levels the later bin in registry order wins.
func nextCollection(states []models.BinState) models.NextCollection {
	if best, ok := fullestWithStatus(states, models.StatusCritical); ok {
		return models.NextCollection{
			BinID:     best.BinID,
			Timeframe: "15min",
			Message:   fmt.Sprintf("%s critical", best.Name),
			Status:    models.StatusCritical,
		}
	}
	if best, ok := fullestWithStatus(states, models.StatusWarning); ok {
		return models.NextCollection{
			BinID:     best.BinID,
			Timeframe: "2hrs",
			Message:   fmt.Sprintf("%s needs attention", best.Name),
			Status:    models.StatusWarning,
		}
	}
	return models.NextCollection{
		Timeframe: "None",
		Message:   "All bins normal",
		Status:    models.StatusNormal,
	}
}

func fullestWithStatus(states []models.BinState, status models.Status) (models.BinState, bool) {
	var best models.BinState
	found := false
	for _, st := range states {
		if st.Status != status {
			continue
		}
		if !found || st.FillLevel >= best.FillLevel {
			best = st
			found = true
		}
	}
	return best, found
}
