package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.profiles)
	user := f.user(t, "ada@example.com")

	profile, err := profiles.UpdateSettings(ctx, user.ID, SettingsInput{
		Name:                   strPtr("  Countess Lovelace "),
		Timezone:               strPtr("Europe/London"),
		DefaultReminderCadence: strPtr("7, 1,3,3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Countess Lovelace", profile.Name)
	assert.Equal(t, "Europe/London", profile.Timezone)
	assert.Equal(t, "1,3,7", profile.DefaultReminderCadence)

	stored, err := profiles.ByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Countess Lovelace", stored.Name)
}

func TestUpdateSettingsValidation(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.profiles)
	user := f.user(t, "ada@example.com")

	_, err := profiles.UpdateSettings(ctx, user.ID, SettingsInput{Name: strPtr("   ")})
	assert.True(t, IsValidation(err))

	_, err = profiles.UpdateSettings(ctx, user.ID, SettingsInput{Timezone: strPtr("Mars/Olympus")})
	assert.True(t, IsValidation(err))

	_, err = profiles.UpdateSettings(ctx, user.ID, SettingsInput{DefaultReminderCadence: strPtr("0,90")})
	assert.True(t, IsValidation(err))

	// untouched by the rejected updates
	stored, err := profiles.ByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", stored.Name)
}
