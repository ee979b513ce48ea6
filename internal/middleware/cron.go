package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// CronAuth guards trigger endpoints with Authorization: Bearer <secret>.
// An empty secret leaves the endpoint open only when allowOpen is set
// (development); otherwise every request is rejected.
func CronAuth(secret string, allowOpen bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if allowOpen {
					next(w, r)
					return
				}
				slog.Warn("cron request rejected, CRON_SECRET not configured", "path", r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			auth := r.Header.Get("Authorization")
			given := strings.TrimPrefix(auth, "Bearer ")
			if auth == given || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				slog.Warn("cron request rejected", "path", r.URL.Path, "ip", getClientIP(r))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r)
		}
	}
}
