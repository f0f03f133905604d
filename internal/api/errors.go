package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"adaptive-view-backend/internal/features"
	"adaptive-view-backend/internal/prediction"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// classify maps a pipeline error to a status code and a caller-safe body.
// Classifier internals stay in the logs; only the failing target is named.
func classify(err error) (int, ErrorResponse) {
	var maxErr *http.MaxBytesError
	var fieldErr *features.FieldError
	var predErr *prediction.Error

	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large"}
	case errors.Is(err, prediction.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Details: err.Error()}
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "Feature engineering failed", Details: fieldErr.Error()}
	case errors.Is(err, features.ErrFeatureEngineering):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "Feature engineering failed", Details: err.Error()}
	case errors.As(err, &predErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "Prediction failed", Details: string(predErr.Target) + " classifier failed"}
	case errors.Is(err, prediction.ErrPredictionFailed):
		return http.StatusInternalServerError, ErrorResponse{Error: "Prediction failed"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
