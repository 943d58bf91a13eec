package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"binwatch-backend/internal/events"
	"binwatch-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// ArchivedEntry is a ledger entry as stored in bin_history.
type ArchivedEntry struct {
	SessionID    string  `json:"session_id" db:"session_id"`
	EntryID      int64   `json:"entry_id" db:"entry_id"`
	BinID        int     `json:"bin_id" db:"bin_id"`
	BinName      string  `json:"bin_name" db:"bin_name"`
	Action       string  `json:"action" db:"action"`
	FillLevel    int     `json:"fill_level" db:"fill_level"`
	VolumeLiters float64 `json:"volume_liters" db:"volume_liters"`
	RecordedAt   int64   `json:"recorded_at" db:"recorded_at"` // Unix timestamp
	ArchivedAt   int64   `json:"archived_at" db:"archived_at"` // Unix timestamp
}

// ToHistoryEntryResponse converts an archived row to the client format.
func (a *ArchivedEntry) ToHistoryEntryResponse() models.HistoryEntryResponse {
	return models.HistoryEntry{
		ID:           a.EntryID,
		BinID:        a.BinID,
		BinName:      a.BinName,
		Action:       models.Action(a.Action),
		FillLevel:    a.FillLevel,
		VolumeLiters: a.VolumeLiters,
		Timestamp:    time.Unix(a.RecordedAt, 0),
	}.ToHistoryEntryResponse()
}

// HistoryArchive mirrors ledger entries into SQL. It is write-only from
// the engine's point of view; nothing is loaded back on startup.
type HistoryArchive struct {
	db        *sqlx.DB
	sessionID string
	now       func() time.Time
}

// NewHistoryArchive tags every row with sessionID so entry ids from
// different process runs never collide.
func NewHistoryArchive(db *sqlx.DB, sessionID string) *HistoryArchive {
	return &HistoryArchive{db: db, sessionID: sessionID, now: time.Now}
}

func (a *HistoryArchive) SessionID() string { return a.sessionID }

func (a *HistoryArchive) Name() string { return "history-archive" }

// Send archives the ledger entries carried by an event.
func (a *HistoryArchive) Send(ctx context.Context, e events.Event) error {
	if len(e.Entries) == 0 {
		return nil
	}
	return a.Insert(ctx, e.Entries)
}

// Insert writes entries in one transaction. Re-sending an entry is a no-op.
func (a *HistoryArchive) Insert(ctx context.Context, entries []models.HistoryEntry) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO bin_history (
			session_id, entry_id, bin_id, bin_name, action,
			fill_level, volume_liters, recorded_at, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, entry_id) DO NOTHING
	`)

	archivedAt := a.now().Unix()
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			a.sessionID,
			e.ID,
			e.BinID,
			e.BinName,
			string(e.Action),
			e.FillLevel,
			e.VolumeLiters,
			e.Timestamp.Unix(),
			archivedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to archive entry %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	slog.Debug("[HISTORY] Entries archived", "count", len(entries), "session_id", a.sessionID)
	return nil
}

// List returns archived entries from every session recorded at or after
// since, most recent first.
func (a *HistoryArchive) List(ctx context.Context, since time.Time, limit int) ([]ArchivedEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	var entries []ArchivedEntry
	err := a.db.SelectContext(ctx, &entries, a.db.Rebind(`
		SELECT session_id, entry_id, bin_id, bin_name, action,
		       fill_level, volume_liters, recorded_at, archived_at
		FROM bin_history
		WHERE recorded_at >= ?
		ORDER BY recorded_at DESC, archived_at DESC, entry_id DESC
		LIMIT ?
	`), since.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived history: %w", err)
	}
	return entries, nil
}

// Count returns the number of archived rows.
func (a *HistoryArchive) Count(ctx context.Context) (int, error) {
	var count int
	if err := a.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM bin_history"); err != nil {
		return 0, fmt.Errorf("failed to count archived history: %w", err)
	}
	return count, nil
}
