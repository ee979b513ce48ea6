package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing one set by a proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
	})
}
