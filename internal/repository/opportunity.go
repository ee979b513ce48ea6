package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/model"
)

const (
	OpportunitySortRecent   = "recent"
	OpportunitySortDeadline = "deadline"
)

var (
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrDuplicateSourceURL  = errors.New("an opportunity with this URL already exists")
	// ErrStatusConflict means the row no longer had the status the caller read.
	ErrStatusConflict = errors.New("opportunity status changed concurrently")
)

// OpportunityFilter narrows an owner's opportunity list. Zero values mean
// "no constraint".
type OpportunityFilter struct {
	Status          model.Status
	Type            model.OpportunityType
	ExcludeStatuses []model.Status
	HasDeadline     bool
	DeadlineFrom    *time.Time // inclusive
	DeadlineTo      *time.Time // exclusive
	SortBy          string
	Limit           int
}

type OpportunityRepository interface {
	Create(ctx context.Context, opp *model.Opportunity, seed *model.TimelineStep) error
	ByID(ctx context.Context, userID, id string) (*model.Opportunity, error)
	BySourceURL(ctx context.Context, userID, sourceURL string) (*model.Opportunity, error)
	Opportunities(ctx context.Context, userID string, filter OpportunityFilter) ([]*model.Opportunity, error)
	CountByStatus(ctx context.Context, userID string) (map[model.Status]int, error)
	Update(ctx context.Context, opp *model.Opportunity, expectedStatus model.Status, step *model.TimelineStep) error
	Delete(ctx context.Context, userID, id string) error
	Due(ctx context.Context, from, to time.Time, statuses []model.Status) ([]*model.DueOpportunity, error)
}

type opportunityRepository struct {
	db *sqlx.DB
}

func NewOpportunityRepository(db *sqlx.DB) OpportunityRepository {
	return &opportunityRepository{db: db}
}

// Create inserts the opportunity and its seed timeline step atomically.
func (r *opportunityRepository) Create(ctx context.Context, opp *model.Opportunity, seed *model.TimelineStep) error {
	query := `INSERT INTO opportunities (id, created_by_user_id, title, organization, description, source_url,
	              opportunity_type, status, deadline, tags, checklist_items, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			opp.ID,
			opp.CreatedByUserID,
			opp.Title,
			opp.Organization,
			opp.Description,
			opp.SourceURL,
			opp.Type,
			opp.Status,
			utcPtr(opp.Deadline),
			opp.Tags,
			opp.ChecklistItems,
			opp.CreatedAt.UTC(),
			opp.UpdatedAt.UTC(),
		)
		if isUniqueViolation(err) {
			return ErrDuplicateSourceURL
		}
		if err != nil {
			return err
		}

		if seed == nil {
			return nil
		}
		return insertStep(ctx, tx, seed)
	})
}

func (r *opportunityRepository) ByID(ctx context.Context, userID, id string) (*model.Opportunity, error) {
	opp := &model.Opportunity{}
	query := `SELECT * FROM opportunities WHERE id = $1 AND created_by_user_id = $2`

	err := r.db.GetContext(ctx, opp, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOpportunityNotFound
	}
	if err != nil {
		return nil, err
	}

	return opp, nil
}

func (r *opportunityRepository) BySourceURL(ctx context.Context, userID, sourceURL string) (*model.Opportunity, error) {
	opp := &model.Opportunity{}
	query := `SELECT * FROM opportunities WHERE created_by_user_id = $1 AND source_url = $2`

	err := r.db.GetContext(ctx, opp, query, userID, sourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOpportunityNotFound
	}
	if err != nil {
		return nil, err
	}

	return opp, nil
}

func (r *opportunityRepository) Opportunities(ctx context.Context, userID string, filter OpportunityFilter) ([]*model.Opportunity, error) {
	conds := []string{"created_by_user_id = ?"}
	args := []any{userID}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conds = append(conds, "opportunity_type = ?")
		args = append(args, filter.Type)
	}
	if len(filter.ExcludeStatuses) > 0 {
		conds = append(conds, "status NOT IN (?)")
		args = append(args, filter.ExcludeStatuses)
	}
	if filter.HasDeadline {
		conds = append(conds, "deadline IS NOT NULL")
	}
	if filter.DeadlineFrom != nil {
		conds = append(conds, "deadline >= ?")
		args = append(args, filter.DeadlineFrom.UTC())
	}
	if filter.DeadlineTo != nil {
		conds = append(conds, "deadline < ?")
		args = append(args, filter.DeadlineTo.UTC())
	}

	var orderBy string
	switch filter.SortBy {
	case OpportunitySortDeadline:
		orderBy = " ORDER BY deadline ASC, created_at DESC"
	default: // OpportunitySortRecent or empty
		orderBy = " ORDER BY created_at DESC"
	}

	query := `SELECT * FROM opportunities WHERE ` + strings.Join(conds, " AND ") + orderBy
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build opportunity query: %w", err)
	}

	var opps []*model.Opportunity
	err = r.db.SelectContext(ctx, &opps, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return opps, nil
}

func (r *opportunityRepository) CountByStatus(ctx context.Context, userID string) (map[model.Status]int, error) {
	var rows []struct {
		Status model.Status `db:"status"`
		Count  int          `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM opportunities WHERE created_by_user_id = $1 GROUP BY status`

	err := r.db.SelectContext(ctx, &rows, query, userID)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Update writes every mutable column, guarded by a compare-and-swap on the
// status the caller observed. When step is non-nil it is appended in the same
// transaction, so readers never see the new status without its timeline entry.
func (r *opportunityRepository) Update(ctx context.Context, opp *model.Opportunity, expectedStatus model.Status, step *model.TimelineStep) error {
	query := `UPDATE opportunities
	          SET title = $1, organization = $2, description = $3, source_url = $4, opportunity_type = $5,
	              status = $6, deadline = $7, tags = $8, checklist_items = $9, updated_at = $10
	          WHERE id = $11 AND created_by_user_id = $12 AND status = $13`

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			opp.Title,
			opp.Organization,
			opp.Description,
			opp.SourceURL,
			opp.Type,
			opp.Status,
			utcPtr(opp.Deadline),
			opp.Tags,
			opp.ChecklistItems,
			opp.UpdatedAt.UTC(),
			opp.ID,
			opp.CreatedByUserID,
			expectedStatus,
		)
		if isUniqueViolation(err) {
			return ErrDuplicateSourceURL
		}
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrStatusConflict
		}

		if step == nil {
			return nil
		}
		return insertStep(ctx, tx, step)
	})
}

func (r *opportunityRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM opportunities WHERE id = $1 AND created_by_user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrOpportunityNotFound
	}

	return nil
}

// Due returns opportunities across all owners whose deadline falls in
// [from, to) and whose status is one of statuses, joined with the owner's
// email and display name.
func (r *opportunityRepository) Due(ctx context.Context, from, to time.Time, statuses []model.Status) ([]*model.DueOpportunity, error) {
	query := `SELECT o.*, u.email AS owner_email, COALESCE(p.name, '') AS owner_name
	          FROM opportunities o
	          JOIN users u ON u.id = o.created_by_user_id
	          LEFT JOIN profiles p ON p.user_id = o.created_by_user_id
	          WHERE o.deadline >= ? AND o.deadline < ? AND o.status IN (?)
	          ORDER BY o.deadline ASC`

	query, args, err := sqlx.In(query, from.UTC(), to.UTC(), statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build due query: %w", err)
	}

	var due []*model.DueOpportunity
	err = r.db.SelectContext(ctx, &due, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return due, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
