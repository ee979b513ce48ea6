package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/model"
)

type ProfileRepository interface {
	ByUserID(ctx context.Context, userID string) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) error
	Update(ctx context.Context, profile *model.Profile) error
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE user_id = $1`, userID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.Timezone == "" {
		profile.Timezone = model.DefaultTimezone
	}
	if profile.DefaultReminderCadence == "" {
		profile.DefaultReminderCadence = model.DefaultReminderCadence
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, name, timezone, default_reminder_cadence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ID, profile.UserID, profile.Name, profile.Timezone, profile.DefaultReminderCadence, profile.CreatedAt, profile.UpdatedAt)

	return err
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET name = $1, timezone = $2, default_reminder_cadence = $3, updated_at = $4
		WHERE user_id = $5
	`, profile.Name, profile.Timezone, profile.DefaultReminderCadence, profile.UpdatedAt, profile.UserID)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProfileNotFound
	}

	return nil
}
