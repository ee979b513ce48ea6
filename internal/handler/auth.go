package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/reyschwartz19/OpTracker/internal/config"
	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie   = "oauth_state"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthFailedPath    = "/login?error=oauth"
	oauthSucceededPath = "/dashboard"
)

type AuthHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	userInfoURL       string
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// startSession issues the JWT as a cookie and echoes it for bearer clients.
func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User, status int) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.authService.SetJWTCookie(w, token, expiresAt)
	user.PasswordHash = nil
	writeJSON(w, status, sessionResponse{User: user, Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.authService.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.startSession(w, user, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	if in.Email == "" || in.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		slog.Warn("login failed", "error", err, "email", in.Email)
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	h.startSession(w, user, http.StatusOK)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.authService.ForgotPassword(r.Context(), in.Email)
	if err != nil {
		// Don't reveal specific errors to prevent email enumeration
		slog.Warn("forgot password failed", "error", err, "email", in.Email)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.authService.ResetPassword(r.Context(), in.Token, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		slog.Error("failed to generate oauth state", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	url := h.googleOAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback handles the OAuth callback from Google
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}

	info, err := h.googleUserInfo(r, token)
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), info.Email, info.Name, "google")
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "email", info.Email)
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}

	jwtToken, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		http.Redirect(w, r, oauthFailedPath, http.StatusSeeOther)
		return
	}
	h.authService.SetJWTCookie(w, jwtToken, expiresAt)

	slog.Info("user logged in with google oauth", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, oauthSucceededPath, http.StatusSeeOther)
}

type googleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *AuthHandler) googleUserInfo(r *http.Request, token *oauth2.Token) (*googleUser, error) {
	client := h.googleOAuthConfig.Client(r.Context(), token)
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var info googleUser
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// generateOAuthState creates a random state token for OAuth CSRF protection
func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
