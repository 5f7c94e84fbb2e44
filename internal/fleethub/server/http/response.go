package http

import (
	"encoding/json"
	"net/http"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/pkg/middleware"
	"github.com/autopeer-io/fleetpulse/pkg/log"
)

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Count   *int `json:"count,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

func writeCounted(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data, Count: &count})
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Message: message})
}

// writeError maps a domain error to its status code. Internal errors are
// logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch core.KindOf(err) {
	case core.KindValidation:
		writeMessage(w, http.StatusBadRequest, err.Error())
	case core.KindNotFound:
		writeMessage(w, http.StatusNotFound, err.Error())
	default:
		log.Error(err, "Request failed", "method", r.Method, "path", r.URL.Path,
			"requestId", middleware.RequestIDFrom(r.Context()))
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// orEmpty keeps empty results encoded as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
