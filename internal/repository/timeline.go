package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/model"
)

type TimelineRepository interface {
	Steps(ctx context.Context, opportunityID string) ([]*model.TimelineStep, error)
}

type timelineRepository struct {
	db *sqlx.DB
}

func NewTimelineRepository(db *sqlx.DB) TimelineRepository {
	return &timelineRepository{db: db}
}

// Steps returns the timeline newest first.
func (r *timelineRepository) Steps(ctx context.Context, opportunityID string) ([]*model.TimelineStep, error) {
	steps := []*model.TimelineStep{}
	query := `SELECT * FROM timeline_steps WHERE opportunity_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &steps, query, opportunityID)
	if err != nil {
		return nil, err
	}

	return steps, nil
}

// insertStep appends a step inside an opportunity write. Steps are never
// updated or deleted on their own.
func insertStep(ctx context.Context, tx *sqlx.Tx, step *model.TimelineStep) error {
	query := `INSERT INTO timeline_steps (id, opportunity_id, step_type, label, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.ExecContext(ctx, query, step.ID, step.OpportunityID, step.StepType, step.Label, step.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append timeline step: %w", err)
	}
	return nil
}
