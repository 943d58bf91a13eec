package engine

import (
	"sort"
	"time"

	"binwatch-backend/internal/models"
)

// Window selects how far back a history query reaches.
type Window string

const (
	Window24h Window = "24h"
	Window1w  Window = "1w"
	Window15d Window = "15d"
	Window1m  Window = "1m"
)

// ParseWindow maps a query tag to a Window. Empty or unknown tags fall back
// to the last 24 hours.
func ParseWindow(tag string) Window {
	switch w := Window(tag); w {
	case Window24h, Window1w, Window15d, Window1m:
		return w
	default:
		return Window24h
	}
}

// Cutoff is the earliest timestamp included in the window.
func (w Window) Cutoff(now time.Time) time.Time {
	switch w {
	case Window1w:
		return now.AddDate(0, 0, -7)
	case Window15d:
		return now.AddDate(0, 0, -15)
	case Window1m:
		return now.AddDate(0, -1, 0)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// ledger is the append-only history log. Not synchronized; Engine
// serializes access.
type ledger struct {
	entries []models.HistoryEntry
	nextID  int64
}

func newLedger() *ledger {
	return &ledger{nextID: 1}
}

func (l *ledger) append(bin models.Bin, action models.Action, fillLevel int, now time.Time) models.HistoryEntry {
	e := models.HistoryEntry{
		ID:           l.nextID,
		BinID:        bin.ID,
		BinName:      bin.Name,
		Action:       action,
		FillLevel:    fillLevel,
		VolumeLiters: models.VolumeLiters(fillLevel, bin.CapacityLiters),
		Timestamp:    now,
	}
	l.nextID++
	l.entries = append(l.entries, e)
	return e
}

// query returns entries at or after the window cutoff, most recent first.
func (l *ledger) query(w Window, now time.Time) []models.HistoryEntry {
	cutoff := w.Cutoff(now)
	out := []models.HistoryEntry{}
	for _, e := range l.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (l *ledger) len() int { return len(l.entries) }

// clear drops all entries but keeps ids increasing for the session.
func (l *ledger) clear() {
	l.entries = nil
}
