package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/model"
)

type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	ByOpportunity(ctx context.Context, opportunityID string) ([]*model.Reminder, error)
	ByOpportunityAndOffset(ctx context.Context, opportunityID string, offsetDays int) ([]*model.Reminder, error)
}

type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	query := `INSERT INTO reminders (id, user_id, opportunity_id, scheduled_at, offset_days, channel, status, sent_at, error, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.UserID,
		reminder.OpportunityID,
		reminder.ScheduledAt.UTC(),
		reminder.OffsetDays,
		reminder.Channel,
		reminder.Status,
		utcPtr(reminder.SentAt),
		reminder.Error,
		reminder.CreatedAt.UTC(),
	)
	return err
}

func (r *reminderRepository) ByOpportunity(ctx context.Context, opportunityID string) ([]*model.Reminder, error) {
	reminders := []*model.Reminder{}
	query := `SELECT * FROM reminders WHERE opportunity_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reminders, query, opportunityID)
	if err != nil {
		return nil, err
	}

	return reminders, nil
}

// ByOpportunityAndOffset returns the ledger rows for one (opportunity, offset)
// pair, sent and failed alike.
func (r *reminderRepository) ByOpportunityAndOffset(ctx context.Context, opportunityID string, offsetDays int) ([]*model.Reminder, error) {
	reminders := []*model.Reminder{}
	query := `SELECT * FROM reminders WHERE opportunity_id = $1 AND offset_days = $2 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &reminders, query, opportunityID, offsetDays)
	if err != nil {
		return nil, err
	}

	return reminders, nil
}
