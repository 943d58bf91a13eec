package handlers

import (
	"net/http"

	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/models"
	"binwatch-backend/pkg/utils"
)

type ResetResponse struct {
	Success        bool                      `json:"success"`
	HistoryCleared bool                      `json:"history_cleared"`
	Bins           []models.BinStateResponse `json:"bins"`
}

// GetDashboard returns a consistent snapshot of everything the dashboard
// renders.
// GET /api/dashboard
func GetDashboard(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, eng.Snapshot())
	}
}

// ResetEngine returns every bin to its seeded level and clears alert and
// schedule configuration.
// POST /api/reset
func ResetEngine(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := eng.CommandReset()
		utils.Success(w, ResetResponse{
			Success:        true,
			HistoryCleared: res.HistoryCleared,
			Bins:           models.ToBinStateResponses(res.Bins),
		})
	}
}
