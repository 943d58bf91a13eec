package handlers

import (
	"errors"
	"net/http"

	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/models"
	"binwatch-backend/pkg/utils"
)

type ScheduleResponse struct {
	HasActiveSchedule bool              `json:"has_active_schedule"`
	Schedule          models.Schedule   `json:"schedule"`
	Reminders         []models.Reminder `json:"reminders"`
}

// ScheduleConflictResponse is sent with 409 when an active schedule would
// be replaced without confirmation.
type ScheduleConflictResponse struct {
	Success              bool            `json:"success"`
	Error                string          `json:"error"`
	ConfirmationRequired bool            `json:"confirmation_required"`
	Current              models.Schedule `json:"current"`
}

func scheduleResponse(eng *engine.Engine) ScheduleResponse {
	return ScheduleResponse{
		HasActiveSchedule: eng.HasActiveSchedule(),
		Schedule:          eng.Schedule(),
		Reminders:         eng.Reminders(),
	}
}

// GET /api/schedule
func GetSchedule(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, scheduleResponse(eng))
	}
}

// SetSchedule applies one collection interval (hours, clamped to [1, 168])
// to every bin.
// PUT /api/schedule
func SetSchedule(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := models.ScheduleRequest{Hours: models.DefaultScheduleHours}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		current, err := eng.SetScheduleForAll(req.Hours, req.Confirm)
		if errors.Is(err, engine.ErrScheduleConfirmationRequired) {
			utils.RespondJSON(w, http.StatusConflict, ScheduleConflictResponse{
				Success:              false,
				Error:                err.Error(),
				ConfirmationRequired: true,
				Current:              current,
			})
			return
		}
		if err != nil {
			respondEngineError(w, "[SCHEDULE]", err)
			return
		}
		utils.Success(w, scheduleResponse(eng))
	}
}
