package handler

import (
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/service"
)

type AccountHandler struct {
	userService    *service.UserService
	profileService *service.ProfileService
}

func NewAccountHandler(userService *service.UserService, profileService *service.ProfileService) *AccountHandler {
	return &AccountHandler{
		userService:    userService,
		profileService: profileService,
	}
}

type accountResponse struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Name                   string `json:"name"`
	Timezone               string `json:"timezone"`
	DefaultReminderCadence string `json:"defaultReminderCadence"`
	HasPassword            bool   `json:"hasPassword"`
}

// Me returns the signed-in user merged with their settings.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	// the context copy has its hash stripped
	full, err := h.userService.ByID(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile := ctxkeys.Profile(r.Context())
	writeJSON(w, http.StatusOK, accountResponse{
		ID:                     user.ID,
		Email:                  user.Email,
		Name:                   profile.Name,
		Timezone:               profile.Timezone,
		DefaultReminderCadence: profile.DefaultReminderCadence,
		HasPassword:            full.HasPassword(),
	})
}

func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var in service.SettingsInput
	if !decodeJSON(w, r, &in) {
		return
	}

	profile, err := h.profileService.UpdateSettings(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.userService.UpdatePassword(r.Context(), user.ID, in.CurrentPassword, in.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
