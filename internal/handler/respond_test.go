package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"duplicate url", &service.DuplicateSourceURLError{ExistingID: "opp-1"}, http.StatusBadRequest, `{"error":"An opportunity with this URL already exists","existingId":"opp-1"}`},
		{"validation", fmt.Errorf("wrapped: %w", &service.ValidationError{Field: "title", Message: "title is required"}), http.StatusBadRequest, `{"error":"title is required","field":"title"}`},
		{"opportunity missing", fmt.Errorf("load: %w", repository.ErrOpportunityNotFound), http.StatusNotFound, `{"error":"Opportunity not found"}`},
		{"document missing", repository.ErrDocumentNotFound, http.StatusNotFound, `{"error":"Document not found"}`},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"invalid email or password"}`},
		{"concurrent", service.ErrConcurrentUpdate, http.StatusConflict, `{"error":"opportunity was modified concurrently, please retry"}`},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Status string `json:"status"`
	}

	rec := httptest.NewRecorder()
	ok := decodeJSON(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"submitted"}`)), &dst)
	assert.True(t, ok)
	assert.Equal(t, "submitted", dst.Status)

	rec = httptest.NewRecorder()
	ok = decodeJSON(rec, httptest.NewRequest(http.MethodPut, "/", http.NoBody), &dst)
	assert.True(t, ok, "empty body is allowed")

	rec = httptest.NewRecorder()
	ok = decodeJSON(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{not json`)), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rec.Body.String())
}
