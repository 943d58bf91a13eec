package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"binwatch-backend/internal/engine"
	"binwatch-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// binIDParam parses the {id} path segment. It writes a 400 and returns
// false when the id is not an integer.
func binIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid bin id: "+raw)
		return 0, false
	}
	return id, true
}

// respondEngineError maps engine errors to HTTP status codes.
func respondEngineError(w http.ResponseWriter, tag string, err error) {
	switch {
	case engine.IsNotFound(err):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrScheduleConfirmationRequired):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(tag+" Unexpected engine error", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
