package handlers

import (
	"log/slog"
	"net/http"

	"binwatch-backend/internal/engine"
	"binwatch-backend/internal/models"
	"binwatch-backend/pkg/utils"
)

// EmptyBinResponse is returned by the empty and collect endpoints.
type EmptyBinResponse struct {
	Success      bool                         `json:"success"`
	Message      string                       `json:"message"`
	AlreadyEmpty bool                         `json:"already_empty"`
	Bin          models.BinStateResponse      `json:"bin"`
	Entry        *models.HistoryEntryResponse `json:"entry,omitempty"`
}

type EmptyAllResponse struct {
	Success      bool                          `json:"success"`
	Message      string                        `json:"message"`
	AlreadyEmpty bool                          `json:"already_empty"`
	Bins         []models.BinStateResponse     `json:"bins"`
	Entries      []models.HistoryEntryResponse `json:"entries"`
}

// GetBins returns every bin in registry order.
// GET /api/bins
func GetBins(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, models.ToBinStateResponses(eng.ReadAll()))
	}
}

// GET /api/bins/{id}
func GetBin(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		st, err := eng.Read(id)
		if err != nil {
			respondEngineError(w, "[GET-BIN]", err)
			return
		}
		utils.Success(w, st.ToBinStateResponse())
	}
}

// RecordReading stores a sensor fill level. Out-of-range values are clamped.
// POST /api/bins/{id}/readings
func RecordReading(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		var req models.ReadingRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		st, err := eng.ApplyReading(id, req.FillLevel)
		if err != nil {
			respondEngineError(w, "[READING]", err)
			return
		}
		utils.Success(w, st.ToBinStateResponse())
	}
}

// POST /api/bins/{id}/empty
func EmptyBin(eng *engine.Engine) http.HandlerFunc {
	return emptyBin(eng.CommandEmptyBin, "[EMPTY-BIN]")
}

// POST /api/bins/{id}/collect
func CollectBin(eng *engine.Engine) http.HandlerFunc {
	return emptyBin(eng.CommandCollectBin, "[COLLECT-BIN]")
}

func emptyBin(command func(int) (engine.EmptyResult, error), tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := binIDParam(w, r)
		if !ok {
			return
		}

		res, err := command(id)
		if err != nil {
			respondEngineError(w, tag, err)
			return
		}

		resp := EmptyBinResponse{
			Success:      true,
			Message:      res.Message,
			AlreadyEmpty: res.AlreadyEmpty,
			Bin:          res.Bin.ToBinStateResponse(),
		}
		if res.Entry != nil {
			entry := res.Entry.ToHistoryEntryResponse()
			resp.Entry = &entry
		}
		utils.Success(w, resp)
	}
}

// POST /api/bins/empty-all
func EmptyAllBins(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := eng.CommandEmptyAll()
		slog.Debug("[EMPTY-ALL] Request handled", "entries", len(res.Entries))

		utils.Success(w, EmptyAllResponse{
			Success:      true,
			Message:      res.Message,
			AlreadyEmpty: res.AlreadyEmpty,
			Bins:         models.ToBinStateResponses(res.Bins),
			Entries:      models.ToHistoryEntryResponses(res.Entries),
		})
	}
}
