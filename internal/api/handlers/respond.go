package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	var ve reportconfig.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, series.ErrEmptySeries),
		errors.Is(err, series.ErrShapeMismatch),
		errors.Is(err, series.ErrUnsorted),
		errors.Is(err, series.ErrInsufficientData),
		errors.Is(err, series.ErrNoDates):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
