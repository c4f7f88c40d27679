// Package api provides HTTP handlers for the Shoply storefront API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dkrylov/shoply/internal/config"
	"github.com/dkrylov/shoply/internal/store"
)

// maxRequestBodySize caps API request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides common handler utilities and dependencies.
type Handler struct {
	repo store.Repository
	cfg  *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{repo: repo, cfg: cfg}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"success": false, "message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Fail writes a JSON failure response in the {success, message} shape.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// decode parses a JSON request body into v, enforcing the size cap.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func logHandlerError(msg string, err error) {
	slog.Error(msg, "error", err)
}
