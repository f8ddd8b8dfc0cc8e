package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwbudde/redraw/internal/store"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writePNG encodes img as an uncached PNG response
func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, img); err != nil {
		slog.Error("Failed to encode PNG", "error", err)
	}
}

// storeErrorStatus maps store errors to HTTP status codes
func storeErrorStatus(err error) int {
	var validation *store.ValidationError
	var compat *store.CompatibilityError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &compat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// jobElapsed returns the wall time a job has been running
func jobElapsed(job *Job) time.Duration {
	if job.EndTime != nil {
		return job.EndTime.Sub(job.StartTime)
	}
	return time.Since(job.StartTime)
}
