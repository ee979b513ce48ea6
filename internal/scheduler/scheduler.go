package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
)

// ErrNotDelivered is returned by a Mailer that accepted a reminder without
// delivering it, as in development. Nothing is recorded for the pair.
var ErrNotDelivered = errors.New("reminder not delivered")

// Mailer delivers one deadline reminder.
type Mailer interface {
	SendReminderEmail(ctx context.Context, to, name string, opp *model.Opportunity, daysLeft int) error
}

type Options struct {
	// Offsets are days before the deadline. Defaults to model.ReminderOffsets.
	Offsets []int
	// MaxAttempts caps failed deliveries per (opportunity, offset) before
	// the pair is given up. Defaults to 3.
	MaxAttempts int
	// RunHour is the UTC hour of the daily run started by Start.
	RunHour int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarises one run.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Scheduler sends deadline reminders. A sent ledger row for an
// (opportunity, offset) pair suppresses every later send for that pair.
type Scheduler struct {
	opps        repository.OpportunityRepository
	reminders   repository.ReminderRepository
	mailer      Mailer
	offsets     []int
	maxAttempts int
	runHour     int
	now         func() time.Time
	notifyCh    chan struct{}
	mu          sync.Mutex // one run at a time
}

func New(
	opps repository.OpportunityRepository,
	reminders repository.ReminderRepository,
	mailer Mailer,
	opts Options,
) *Scheduler {
	if len(opts.Offsets) == 0 {
		opts.Offsets = model.ReminderOffsets
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		opps:        opps,
		reminders:   reminders,
		mailer:      mailer,
		offsets:     opts.Offsets,
		maxAttempts: opts.MaxAttempts,
		runHour:     opts.RunHour,
		now:         opts.Now,
		notifyCh:    make(chan struct{}, 1),
	}
}

// Run performs one pass over every offset. Delivery failures are logged and
// isolated; a datastore error aborts the run and is returned.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := startOfDay(s.now())
	res := &Result{}

	for _, offset := range s.offsets {
		from := today.AddDate(0, 0, offset)
		to := from.AddDate(0, 0, 1)

		due, err := s.opps.Due(ctx, from, to, model.ActionableStatuses)
		if err != nil {
			return res, fmt.Errorf("failed to load opportunities due %s: %w", from.Format(time.DateOnly), err)
		}

		for _, opp := range due {
			err := ctx.Err()
			if err != nil {
				return res, err
			}

			err = s.remind(ctx, opp, offset, res)
			if err != nil {
				return res, err
			}
		}
	}

	slog.Info("reminder run finished", "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// remind handles one (opportunity, offset) pair. Only datastore errors are
// returned.
func (s *Scheduler) remind(ctx context.Context, opp *model.DueOpportunity, offset int, res *Result) error {
	ledger, err := s.reminders.ByOpportunityAndOffset(ctx, opp.ID, offset)
	if err != nil {
		return fmt.Errorf("failed to load reminders for opportunity %s: %w", opp.ID, err)
	}

	failures := 0
	for _, r := range ledger {
		if r.IsSent() {
			res.Skipped++
			return nil
		}
		failures++
	}
	if failures >= s.maxAttempts {
		slog.Debug("reminder retries exhausted", "opportunity_id", opp.ID, "offset_days", offset, "attempts", failures)
		res.Skipped++
		return nil
	}

	if opp.OwnerEmail == "" {
		res.Skipped++
		return nil
	}

	now := s.now().UTC()
	reminder := &model.Reminder{
		ID:            uuid.New().String(),
		UserID:        opp.CreatedByUserID,
		OpportunityID: opp.ID,
		ScheduledAt:   now,
		OffsetDays:    offset,
		Channel:       model.ReminderChannelEmail,
		CreatedAt:     now,
	}

	sendErr := s.mailer.SendReminderEmail(ctx, opp.OwnerEmail, opp.OwnerName, &opp.Opportunity, offset)
	if errors.Is(sendErr, ErrNotDelivered) {
		slog.Debug("reminder not delivered, leaving pair pending", "opportunity_id", opp.ID, "offset_days", offset)
		res.Skipped++
		return nil
	}
	if sendErr != nil {
		slog.Warn("failed to send reminder", "error", sendErr, "opportunity_id", opp.ID, "offset_days", offset, "attempt", failures+1)
		msg := sendErr.Error()
		reminder.Status = model.ReminderStatusFailed
		reminder.Error = &msg
		res.Failed++
	} else {
		reminder.Status = model.ReminderStatusSent
		reminder.SentAt = &now
		res.Sent++
	}

	err = s.reminders.Create(ctx, reminder)
	if err != nil {
		return fmt.Errorf("failed to record reminder for opportunity %s: %w", opp.ID, err)
	}

	return nil
}

// Notify triggers an immediate run. Non-blocking if a run is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs once a day at RunHour UTC, and whenever Notify is called,
// until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("reminder scheduler started", "run_hour_utc", s.runHour)

	for {
		wait := s.untilNextRun()
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("reminder scheduler stopped")
			return nil
		case <-timer.C:
			s.runLogged(ctx, "schedule")
		case <-s.notifyCh:
			timer.Stop()
			s.runLogged(ctx, "notify")
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context, trigger string) {
	_, err := s.Run(ctx)
	if err != nil {
		slog.Error("reminder run failed", "error", err, "trigger", trigger)
	}
}

func (s *Scheduler) untilNextRun() time.Duration {
	now := s.now().UTC()
	next := startOfDay(now).Add(time.Duration(s.runHour) * time.Hour)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
