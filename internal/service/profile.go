package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/validation"
)

// SettingsInput is a partial settings update.
type SettingsInput struct {
	Name                   *string `json:"name" validate:"omitempty,max=100"`
	Timezone               *string `json:"timezone" validate:"omitempty,timezone"`
	DefaultReminderCadence *string `json:"defaultReminderCadence" validate:"omitempty,cadence"`
}

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
	}
}

func (s *ProfileService) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profileRepo.ByUserID(ctx, userID)
}

func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*model.Profile, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		err := validation.ValidateName(name)
		if err != nil {
			return nil, invalid("name", err.Error())
		}
		in.Name = &name
	}

	err := validateStruct(in)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if in.Name != nil {
		profile.Name = *in.Name
	}
	if in.Timezone != nil {
		profile.Timezone = *in.Timezone
	}
	if in.DefaultReminderCadence != nil {
		days, _ := validation.ParseCadence(*in.DefaultReminderCadence)
		profile.DefaultReminderCadence = formatCadence(days)
	}

	err = s.profileRepo.Update(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return profile, nil
}

func formatCadence(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, ",")
}
