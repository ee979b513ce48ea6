package service

import (
	"testing"
	"time"

	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	opps := f.opportunityService()
	dash := f.dashboardService()
	user := f.user(t, "ada@example.com")

	create := func(title string, deadline *time.Time, status model.Status) {
		opp, err := opps.Create(ctx, user.ID, CreateOpportunityInput{Title: title, Type: model.OpportunityTypeJob, Deadline: deadline})
		require.NoError(t, err)
		if status != model.StatusInterested {
			_, err = opps.UpdateStatus(ctx, user.ID, opp.ID, status)
			require.NoError(t, err)
		}
		f.now = f.now.Add(time.Minute)
	}
	days := func(n int) *time.Time {
		d := f.now.AddDate(0, 0, n)
		return &d
	}

	create("soon", days(3), model.StatusInterested)
	create("later", days(20), model.StatusInProgress)
	create("too far", days(45), model.StatusInterested)
	create("done", days(5), model.StatusAccepted)
	create("past", days(-2), model.StatusSubmitted)
	create("none", nil, model.StatusInterested)
	create("newest", days(10), model.StatusRejected)

	d, err := dash.Dashboard(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, DashboardStats{Total: 7, Interested: 3, InProgress: 1, Submitted: 1, Accepted: 1}, d.Stats)

	require.Len(t, d.Recent, 5)
	assert.Equal(t, "newest", d.Recent[0].Title)

	titles := make([]string, 0, len(d.Upcoming))
	for _, o := range d.Upcoming {
		titles = append(titles, o.Title)
	}
	assert.Equal(t, []string{"soon", "later"}, titles)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	opps := f.opportunityService()
	dash := f.dashboardService()
	user := f.user(t, "ada@example.com")

	june := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []CreateOpportunityInput{
		{Title: "July", Type: model.OpportunityTypeJob, Deadline: &july},
		{Title: "June", Type: model.OpportunityTypeJob, Deadline: &june},
		{Title: "Open", Type: model.OpportunityTypeJob},
	} {
		_, err := opps.Create(ctx, user.ID, in)
		require.NoError(t, err)
		f.now = f.now.Add(time.Minute)
	}

	all, err := dash.Calendar(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "June", all[0].Title)
	assert.Equal(t, "July", all[1].Title)

	onlyJuly, err := dash.Calendar(ctx, user.ID, "2024-07")
	require.NoError(t, err)
	require.Len(t, onlyJuly, 1)
	assert.Equal(t, "July", onlyJuly[0].Title)

	empty, err := dash.Calendar(ctx, user.ID, "2023-01")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = dash.Calendar(ctx, user.ID, "July")
	assert.True(t, IsValidation(err))
}
