package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/db/dbtest"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func createUser(t *testing.T, conn *sqlx.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repository.NewUserRepository(conn).Create(ctx, user))
	require.NoError(t, repository.NewProfileRepository(conn).Create(ctx, &model.Profile{UserID: user.ID, Name: "Ada"}))
	return user
}

func newOpportunity(userID, title string, deadline *time.Time) *model.Opportunity {
	now := time.Now().UTC()
	return &model.Opportunity{
		ID:              uuid.New().String(),
		CreatedByUserID: userID,
		Title:           title,
		Type:            model.OpportunityTypeScholarship,
		Status:          model.StatusInterested,
		Deadline:        deadline,
		Tags:            model.Tags{"stem"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func seedStep(opp *model.Opportunity) *model.TimelineStep {
	return &model.TimelineStep{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		StepType:      model.StepTypeSaved,
		Label:         model.SavedStepLabel(),
		CreatedAt:     opp.CreatedAt,
	}
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestOpportunityCreateAndByID(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	timeline := repository.NewTimelineRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	opp := newOpportunity(user.ID, "Rhodes", at("2024-06-09T12:00:00Z"))
	require.NoError(t, repo.Create(ctx, opp, seedStep(opp)))

	got, err := repo.ByID(ctx, user.ID, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rhodes", got.Title)
	assert.Equal(t, model.StatusInterested, got.Status)
	assert.Equal(t, model.Tags{"stem"}, got.Tags)
	assert.Empty(t, got.ChecklistItems)
	require.NotNil(t, got.Deadline)
	assert.True(t, got.Deadline.Equal(*opp.Deadline))

	steps, err := timeline.Steps(ctx, opp.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, model.StepTypeSaved, steps[0].StepType)
}

func TestOpportunityByIDScopedToOwner(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	owner := createUser(t, conn, "owner@example.com")
	other := createUser(t, conn, "other@example.com")

	opp := newOpportunity(owner.ID, "Fulbright", nil)
	require.NoError(t, repo.Create(ctx, opp, nil))

	_, err := repo.ByID(ctx, other.ID, opp.ID)
	assert.ErrorIs(t, err, repository.ErrOpportunityNotFound)

	err = repo.Delete(ctx, other.ID, opp.ID)
	assert.ErrorIs(t, err, repository.ErrOpportunityNotFound)
}

func TestOpportunityDuplicateSourceURL(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	user := createUser(t, conn, "ada@example.com")
	other := createUser(t, conn, "bob@example.com")
	url := "https://example.org/apply"

	first := newOpportunity(user.ID, "First", nil)
	first.SourceURL = &url
	require.NoError(t, repo.Create(ctx, first, nil))

	second := newOpportunity(user.ID, "Second", nil)
	second.SourceURL = &url
	err := repo.Create(ctx, second, nil)
	assert.ErrorIs(t, err, repository.ErrDuplicateSourceURL)

	// another owner may track the same URL
	third := newOpportunity(other.ID, "Third", nil)
	third.SourceURL = &url
	require.NoError(t, repo.Create(ctx, third, nil))

	found, err := repo.BySourceURL(ctx, user.ID, url)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestOpportunityUpdateCompareAndSwap(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	timeline := repository.NewTimelineRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	opp := newOpportunity(user.ID, "Chevening", nil)
	require.NoError(t, repo.Create(ctx, opp, seedStep(opp)))

	opp.Status = model.StatusInProgress
	opp.UpdatedAt = time.Now().UTC()
	step := &model.TimelineStep{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		StepType:      string(model.StatusInProgress),
		Label:         model.StatusChangeLabel(model.StatusInProgress),
		CreatedAt:     opp.UpdatedAt.Add(time.Second),
	}
	require.NoError(t, repo.Update(ctx, opp, model.StatusInterested, step))

	// a writer that still believes the row is "interested" loses
	opp.Status = model.StatusSubmitted
	stale := &model.TimelineStep{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		StepType:      string(model.StatusSubmitted),
		Label:         model.StatusChangeLabel(model.StatusSubmitted),
		CreatedAt:     opp.UpdatedAt.Add(2 * time.Second),
	}
	err := repo.Update(ctx, opp, model.StatusInterested, stale)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	got, err := repo.ByID(ctx, user.ID, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	steps, err := timeline.Steps(ctx, opp.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Status changed to in progress", steps[0].Label)
}

func TestOpportunitiesFilters(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	june := newOpportunity(user.ID, "June", at("2024-06-15T00:00:00Z"))
	july := newOpportunity(user.ID, "July", at("2024-07-02T00:00:00Z"))
	july.Type = model.OpportunityTypeInternship
	none := newOpportunity(user.ID, "No deadline", nil)
	archived := newOpportunity(user.ID, "Archived", at("2024-06-20T00:00:00Z"))
	archived.Status = model.StatusArchived
	for _, o := range []*model.Opportunity{june, july, none, archived} {
		require.NoError(t, repo.Create(ctx, o, nil))
	}

	all, err := repo.Opportunities(ctx, user.ID, repository.OpportunityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	interns, err := repo.Opportunities(ctx, user.ID, repository.OpportunityFilter{Type: model.OpportunityTypeInternship})
	require.NoError(t, err)
	require.Len(t, interns, 1)
	assert.Equal(t, "July", interns[0].Title)

	archivedOnly, err := repo.Opportunities(ctx, user.ID, repository.OpportunityFilter{Status: model.StatusArchived})
	require.NoError(t, err)
	require.Len(t, archivedOnly, 1)

	inJune, err := repo.Opportunities(ctx, user.ID, repository.OpportunityFilter{
		HasDeadline:     true,
		ExcludeStatuses: []model.Status{model.StatusArchived},
		DeadlineFrom:    at("2024-06-01T00:00:00Z"),
		DeadlineTo:      at("2024-07-01T00:00:00Z"),
		SortBy:          repository.OpportunitySortDeadline,
	})
	require.NoError(t, err)
	require.Len(t, inJune, 1)
	assert.Equal(t, "June", inJune[0].Title)

	limited, err := repo.Opportunities(ctx, user.ID, repository.OpportunityFilter{
		HasDeadline: true,
		SortBy:      repository.OpportunitySortDeadline,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "June", limited[0].Title)
	assert.Equal(t, "Archived", limited[1].Title)
}

func TestCountByStatus(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	for i, status := range []model.Status{model.StatusInterested, model.StatusInterested, model.StatusSubmitted} {
		o := newOpportunity(user.ID, "Opp", nil)
		o.Status = status
		o.CreatedAt = o.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, o, nil))
	}

	counts, err := repo.CountByStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusInterested])
	assert.Equal(t, 1, counts[model.StatusSubmitted])
	assert.Zero(t, counts[model.StatusAccepted])
}

func TestDueJoinsOwnerAndFiltersWindow(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	inside := newOpportunity(user.ID, "Inside", at("2024-06-09T23:59:59Z"))
	edge := newOpportunity(user.ID, "Next day", at("2024-06-10T00:00:00Z"))
	submitted := newOpportunity(user.ID, "Submitted", at("2024-06-09T10:00:00Z"))
	submitted.Status = model.StatusSubmitted
	for _, o := range []*model.Opportunity{inside, edge, submitted} {
		require.NoError(t, repo.Create(ctx, o, nil))
	}

	due, err := repo.Due(ctx, *at("2024-06-09T00:00:00Z"), *at("2024-06-10T00:00:00Z"), model.ActionableStatuses)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, inside.ID, due[0].ID)
	assert.Equal(t, "ada@example.com", due[0].OwnerEmail)
	assert.Equal(t, "Ada", due[0].OwnerName)
}

func TestDeleteCascadesTimeline(t *testing.T) {
	conn := dbtest.New(t)
	repo := repository.NewOpportunityRepository(conn)
	timeline := repository.NewTimelineRepository(conn)
	user := createUser(t, conn, "ada@example.com")

	opp := newOpportunity(user.ID, "Gone", nil)
	require.NoError(t, repo.Create(ctx, opp, seedStep(opp)))
	require.NoError(t, repo.Delete(ctx, user.ID, opp.ID))

	steps, err := timeline.Steps(ctx, opp.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}
