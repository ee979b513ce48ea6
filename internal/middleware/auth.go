package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/service"
)

// AuthMiddleware reads the session JWT from the auth cookie or an
// Authorization: Bearer header and adds user + profile to the context if valid.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService, profileService *service.ProfileService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			// drop a stale cookie so the browser stops sending it
			reject := func() {
				if fromCookie {
					authService.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
			}

			claims, err := authService.VerifyJWT(token)
			if err != nil {
				reject()
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				reject()
				return
			}

			user, err := userService.ByID(r.Context(), userID)
			if err != nil {
				reject()
				return
			}

			// Security: Remove password hash from context
			user.PasswordHash = nil

			profile, err := profileService.ByUserID(r.Context(), userID)
			if err != nil {
				reject()
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithProfile(ctx, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (token string, fromCookie bool) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), false
	}

	cookie, err := r.Cookie(service.AuthCookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
