package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/GustasGrieze/Gramatikonas/internal/exercise"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
	"github.com/GustasGrieze/Gramatikonas/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// writeServiceError maps domain errors onto HTTP statuses. Unexpected
// errors are logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, exercise.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, exercise.ErrNoTasks),
		errors.Is(err, models.ErrInvalidMultiplier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exercise.ErrHighlightNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
