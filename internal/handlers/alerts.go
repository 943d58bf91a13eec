package handlers

import (
	"net/http"

	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/models"
	"binwatch-backend/pkg/utils"
)

// GetBinAlert reports whether a bin's alert is triggered and at what
// priority.
// GET /api/bins/{id}/alert
func GetBinAlert(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		status, err := eng.AlertStatus(id)
		if err != nil {
			respondEngineError(w, "[GET-ALERT]", err)
			return
		}
		utils.Success(w, status)
	}
}

// SetThreshold saves a custom alert threshold, clamped to [50, 100].
// PUT /api/bins/{id}/threshold
func SetThreshold(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		req := models.ThresholdRequest{Percentage: models.DefaultThreshold}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		setting, err := eng.SetThreshold(id, req.Percentage)
		if err != nil {
			respondEngineError(w, "[THRESHOLD]", err)
			return
		}
		utils.Success(w, setting)
	}
}

// PUT /api/bins/{id}/alert
func SetBinAlert(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		var req models.AlertToggleRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		setting, err := eng.SetAlertEnabled(id, req.Enabled)
		if err != nil {
			respondEngineError(w, "[ALERTS]", err)
			return
		}
		utils.Success(w, setting)
	}
}

// GET /api/alerts
func GetAlerts(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, eng.Alerts())
	}
}

// GET /api/alerts/settings
func GetAlertSettings(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, eng.AlertSettings())
	}
}

// UpdateAlertSettings enables or disables alerting for every bin at once.
// PUT /api/alerts/settings
func UpdateAlertSettings(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AlertToggleRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.Success(w, eng.SetAllAlertsEnabled(req.Enabled))
	}
}
