package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
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

type sentMail struct {
	To       string
	OppID    string
	DaysLeft int
}

type fakeMailer struct {
	mu          sync.Mutex
	sent        []sentMail
	failTo      map[string]bool
	undelivered bool
	calls       chan struct{}
}

func newFakeMailer(failTo ...string) *fakeMailer {
	m := &fakeMailer{failTo: map[string]bool{}, calls: make(chan struct{}, 100)}
	for _, to := range failTo {
		m.failTo[to] = true
	}
	return m
}

func (m *fakeMailer) SendReminderEmail(ctx context.Context, to, name string, opp *model.Opportunity, daysLeft int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls <- struct{}{}
	if m.undelivered {
		return fmt.Errorf("dev mailer: %w", ErrNotDelivered)
	}
	if m.failTo[to] {
		return errors.New("smtp: mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, OppID: opp.ID, DaysLeft: daysLeft})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type fixture struct {
	db        *sqlx.DB
	users     repository.UserRepository
	opps      repository.OpportunityRepository
	reminders repository.ReminderRepository
	mailer    *fakeMailer
	now       time.Time
}

func newFixture(t *testing.T, failTo ...string) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	return &fixture{
		db:        conn,
		users:     repository.NewUserRepository(conn),
		opps:      repository.NewOpportunityRepository(conn),
		reminders: repository.NewReminderRepository(conn),
		mailer:    newFakeMailer(failTo...),
	}
}

func (f *fixture) scheduler(opts Options) *Scheduler {
	opts.Now = func() time.Time { return f.now }
	return New(f.opps, f.reminders, f.mailer, opts)
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New().String(), Email: email, CreatedAt: time.Now()}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) opportunity(t *testing.T, userID string, status model.Status, deadline time.Time) *model.Opportunity {
	t.Helper()
	now := time.Now()
	o := &model.Opportunity{
		ID:              uuid.New().String(),
		CreatedByUserID: userID,
		Title:           "Rhodes Scholarship",
		Type:            model.OpportunityTypeScholarship,
		Status:          status,
		Deadline:        &deadline,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.opps.Create(context.Background(), o, nil))
	return o
}

func (f *fixture) ledger(t *testing.T, oppID string) []*model.Reminder {
	t.Helper()
	rs, err := f.reminders.ByOpportunity(context.Background(), oppID)
	require.NoError(t, err)
	return rs
}

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestRunSendsOncePerOffset(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	u := f.user(t, "ada@example.com")
	o := f.opportunity(t, u.ID, model.StatusInterested, day(2024, 6, 10, 23))
	s := f.scheduler(Options{})

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	ledger := f.ledger(t, o.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, 3, ledger[0].OffsetDays)
	assert.Equal(t, model.ReminderStatusSent, ledger[0].Status)
	assert.Equal(t, model.ReminderChannelEmail, ledger[0].Channel)
	assert.NotNil(t, ledger[0].SentAt)

	res, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, f.mailer.Sent(), 1)
	assert.Len(t, f.ledger(t, o.ID), 1)
}

func TestRunDeadlineScenario(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "grace@example.com")
	o := f.opportunity(t, u.ID, model.StatusInterested, day(2024, 6, 10, 0))
	s := f.scheduler(Options{})

	f.now = day(2024, 6, 7, 9)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	res, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)

	f.now = day(2024, 6, 9, 9)
	res, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	sent := f.mailer.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, 3, sent[0].DaysLeft)
	assert.Equal(t, 1, sent[1].DaysLeft)
	assert.Equal(t, o.ID, sent[1].OppID)

	offsets := map[int]string{}
	for _, r := range f.ledger(t, o.ID) {
		offsets[r.OffsetDays] = r.Status
	}
	assert.Equal(t, map[int]string{3: model.ReminderStatusSent, 1: model.ReminderStatusSent}, offsets)
}

func TestRunWindowCoversWholeDay(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 23)
	u := f.user(t, "edge@example.com")
	first := f.opportunity(t, u.ID, model.StatusInterested, day(2024, 6, 8, 0))
	last := f.opportunity(t, u.ID, model.StatusInProgress, day(2024, 6, 8, 0).Add(24*time.Hour-time.Nanosecond))
	f.opportunity(t, u.ID, model.StatusInterested, day(2024, 6, 9, 0))

	res, err := f.scheduler(Options{Offsets: []int{1}}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Len(t, f.ledger(t, first.ID), 1)
	assert.Len(t, f.ledger(t, last.ID), 1)
}

func TestRunSkipsInactiveStatuses(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	u := f.user(t, "linus@example.com")

	var skipped []*model.Opportunity
	for _, st := range []model.Status{model.StatusAccepted, model.StatusSubmitted, model.StatusRejected, model.StatusArchived, model.StatusInterview} {
		skipped = append(skipped, f.opportunity(t, u.ID, st, day(2024, 6, 8, 12)))
	}
	pending := f.opportunity(t, u.ID, model.StatusDecisionPending, day(2024, 6, 8, 12))

	s := f.scheduler(Options{})
	for range 3 {
		_, err := s.Run(context.Background())
		require.NoError(t, err)
	}

	for _, o := range skipped {
		assert.Empty(t, f.ledger(t, o.ID), "status %s", o.Status)
	}
	assert.Len(t, f.ledger(t, pending.ID), 1)
}

func TestRunIsolatesDeliveryFailures(t *testing.T) {
	f := newFixture(t, "broken@example.com")
	f.now = day(2024, 6, 7, 8)
	a := f.opportunity(t, f.user(t, "broken@example.com").ID, model.StatusInterested, day(2024, 6, 10, 12))
	b := f.opportunity(t, f.user(t, "ok@example.com").ID, model.StatusInterested, day(2024, 6, 10, 12))

	res, err := f.scheduler(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)

	bLedger := f.ledger(t, b.ID)
	require.Len(t, bLedger, 1)
	assert.Equal(t, model.ReminderStatusSent, bLedger[0].Status)

	aLedger := f.ledger(t, a.ID)
	require.Len(t, aLedger, 1)
	assert.Equal(t, model.ReminderStatusFailed, aLedger[0].Status)
	require.NotNil(t, aLedger[0].Error)
	assert.Contains(t, *aLedger[0].Error, "mailbox unavailable")
}

func TestRunRetriesFailuresUpToMaxAttempts(t *testing.T) {
	f := newFixture(t, "flaky@example.com")
	f.now = day(2024, 6, 7, 8)
	o := f.opportunity(t, f.user(t, "flaky@example.com").ID, model.StatusInterested, day(2024, 6, 10, 12))
	s := f.scheduler(Options{MaxAttempts: 2})

	for range 4 {
		_, err := s.Run(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, f.mailer.calls, 2)
	assert.Len(t, f.ledger(t, o.ID), 2)

	// delivery recovers: a failed row never counts as sent
	f.mailer.failTo = map[string]bool{}
	s = f.scheduler(Options{MaxAttempts: 3})
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestRunRecordsNothingForUndeliveredReminders(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	o := f.opportunity(t, f.user(t, "dev@example.com").ID, model.StatusInterested, day(2024, 6, 10, 12))
	f.mailer.undelivered = true
	s := f.scheduler(Options{MaxAttempts: 1})

	for range 2 {
		res, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &Result{Skipped: 1}, res)
	}
	assert.Empty(t, f.ledger(t, o.ID))

	// real delivery later still reaches the pair
	f.mailer.undelivered = false
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, f.mailer.Sent(), 1)
	assert.Equal(t, 3, f.mailer.Sent()[0].DaysLeft)
}

func TestRunSkipsOwnersWithoutEmail(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	o := f.opportunity(t, f.user(t, "").ID, model.StatusInterested, day(2024, 6, 8, 12))

	res, err := f.scheduler(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, f.ledger(t, o.ID))
	assert.Empty(t, f.mailer.Sent())
}

func TestRunFailsOnDatastoreError(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	require.NoError(t, f.db.Close())

	_, err := f.scheduler(Options{}).Run(context.Background())
	assert.Error(t, err)
}

func TestStartRunsOnNotify(t *testing.T) {
	f := newFixture(t)
	f.now = day(2024, 6, 7, 8)
	o := f.opportunity(t, f.user(t, "notify@example.com").ID, model.StatusInterested, day(2024, 6, 14, 12))
	s := f.scheduler(Options{RunHour: 8})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	s.Notify()

	select {
	case <-f.mailer.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not run after Notify")
	}

	cancel()
	require.NoError(t, <-done)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, o.ID, sent[0].OppID)
	assert.Equal(t, 7, sent[0].DaysLeft)
}

func TestUntilNextRun(t *testing.T) {
	f := newFixture(t)
	s := f.scheduler(Options{RunHour: 8})

	f.now = day(2024, 6, 7, 6)
	assert.Equal(t, 2*time.Hour, s.untilNextRun())

	f.now = day(2024, 6, 7, 8)
	assert.Equal(t, 24*time.Hour, s.untilNextRun())

	f.now = day(2024, 6, 7, 20)
	assert.Equal(t, 12*time.Hour, s.untilNextRun())
}
