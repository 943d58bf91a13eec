package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"binwatch-backend/internal/database"
	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/models"
	"binwatch-backend/pkg/utils"
)

const defaultArchiveLimit = 200

// ArchiveLister reads the SQL history archive.
type ArchiveLister interface {
	List(ctx context.Context, since time.Time, limit int) ([]database.ArchivedEntry, error)
}

type HistoryResponse struct {
	Window  engine.Window                 `json:"window"`
	Since   string                        `json:"since"`
	Count   int                           `json:"count"`
	Entries []models.HistoryEntryResponse `json:"entries"`
}

// GetHistory returns ledger entries in the requested window, newest first.
// Unknown windows fall back to 24h.
// GET /api/history?window=24h|1w|15d|1m
func GetHistory(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := engine.ParseWindow(r.URL.Query().Get("window"))
		entries := eng.Query(window)

		utils.Success(w, HistoryResponse{
			Window:  window,
			Since:   window.Cutoff(eng.Now()).Format(time.RFC3339),
			Count:   len(entries),
			Entries: models.ToHistoryEntryResponses(entries),
		})
	}
}

// GetArchivedHistory reads entries from every archived session.
// GET /api/history/archive?window=1w&limit=200
func GetArchivedHistory(eng *engine.Engine, archive ArchiveLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "History archive is not configured")
			return
		}

		window := engine.ParseWindow(r.URL.Query().Get("window"))
		limit := defaultArchiveLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.RespondError(w, http.StatusBadRequest, "Invalid limit: "+raw)
				return
			}
			limit = n
		}

		since := window.Cutoff(eng.Now())
		rows, err := archive.List(r.Context(), since, limit)
		if err != nil {
			slog.Error("[HISTORY-ARCHIVE] Failed to list archived history", "error", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch archived history")
			return
		}

		entries := make([]models.HistoryEntryResponse, len(rows))
		for i := range rows {
			entries[i] = rows[i].ToHistoryEntryResponse()
		}
		utils.Success(w, HistoryResponse{
			Window:  window,
			Since:   since.Format(time.RFC3339),
			Count:   len(entries),
			Entries: entries,
		})
	}
}
