package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/service"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	ExistingID string `json:"existingId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service and repository errors onto status codes. Anything
// unrecognised is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *service.DuplicateSourceURLError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: dup.Error(), ExistingID: dup.ExistingID})
		return
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
		return
	}

	switch {
	case errors.Is(err, repository.ErrOpportunityNotFound):
		writeMessage(w, http.StatusNotFound, "Opportunity not found")
	case errors.Is(err, repository.ErrDocumentNotFound):
		writeMessage(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, repository.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrPasswordlessLogin):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrConcurrentUpdate):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a single JSON object into dst. It writes the 400 response
// itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
