package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/reyschwartz19/OpTracker/internal/storage"
)

// maxStatusAttempts bounds re-reads after a lost compare-and-swap.
const maxStatusAttempts = 3

var ErrConcurrentUpdate = errors.New("opportunity was modified concurrently, please retry")

// errUnchanged lets a mutation report that there is nothing to write.
var errUnchanged = errors.New("unchanged")

// ReminderNotifier asks the reminder scheduler for an immediate pass.
type ReminderNotifier interface {
	Notify()
}

type CreateOpportunityInput struct {
	Title          string                `json:"title" validate:"required,max=300"`
	Organization   *string               `json:"organization" validate:"omitempty,max=200"`
	Description    *string               `json:"description" validate:"omitempty,max=10000"`
	SourceURL      *string               `json:"sourceUrl" validate:"omitempty,http_url,max=2048"`
	Type           model.OpportunityType `json:"opportunityType" validate:"required,oneof=scholarship internship fellowship job"`
	Deadline       *time.Time            `json:"deadline"`
	Tags           []string              `json:"tags" validate:"max=50,dive,required,max=50"`
	ChecklistItems []model.ChecklistItem `json:"checklistItems" validate:"max=100,dive"`
}

// UpdateOpportunityInput is a partial update: nil fields are left alone.
// An empty string clears an optional text field.
type UpdateOpportunityInput struct {
	Title          *string                `json:"title" validate:"omitempty,max=300"`
	Organization   *string                `json:"organization" validate:"omitempty,max=200"`
	Description    *string                `json:"description" validate:"omitempty,max=10000"`
	SourceURL      *string                `json:"sourceUrl" validate:"omitempty,http_url,max=2048"`
	Type           *model.OpportunityType `json:"opportunityType" validate:"omitempty,oneof=scholarship internship fellowship job"`
	Status         *model.Status          `json:"status"`
	Deadline       *time.Time             `json:"deadline"`
	ClearDeadline  bool                   `json:"clearDeadline"`
	Tags           *[]string              `json:"tags" validate:"omitempty,max=50,dive,required,max=50"`
	ChecklistItems *[]model.ChecklistItem `json:"checklistItems" validate:"omitempty,max=100,dive"`
}

type OpportunityFilter struct {
	Status model.Status
	Type   model.OpportunityType
}

// OpportunityDetail is an opportunity with everything hanging off it.
type OpportunityDetail struct {
	*model.Opportunity
	Timeline  []*model.TimelineStep `json:"timelineSteps"`
	Reminders []*model.Reminder     `json:"reminders"`
	Documents []*model.Document     `json:"documents"`
}

type OpportunityService struct {
	repo         repository.OpportunityRepository
	timelineRepo repository.TimelineRepository
	reminderRepo repository.ReminderRepository
	documentRepo repository.DocumentRepository
	storage      storage.Storage
	notifier     ReminderNotifier
	now          func() time.Time
}

func NewOpportunityService(
	repo repository.OpportunityRepository,
	timelineRepo repository.TimelineRepository,
	reminderRepo repository.ReminderRepository,
	documentRepo repository.DocumentRepository,
	storage storage.Storage,
	notifier ReminderNotifier,
) *OpportunityService {
	return &OpportunityService{
		repo:         repo,
		timelineRepo: timelineRepo,
		reminderRepo: reminderRepo,
		documentRepo: documentRepo,
		storage:      storage,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Create saves a new opportunity in status interested together with its
// seed timeline step.
func (s *OpportunityService) Create(ctx context.Context, userID string, in CreateOpportunityInput) (*model.Opportunity, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Organization = trimOptional(in.Organization)
	in.Description = trimOptional(in.Description)
	in.SourceURL = trimOptional(in.SourceURL)

	err := validateStruct(in)
	if err != nil {
		return nil, err
	}

	if in.SourceURL != nil {
		existing, err := s.repo.BySourceURL(ctx, userID, *in.SourceURL)
		if err == nil {
			return nil, &DuplicateSourceURLError{ExistingID: existing.ID}
		}
		if !errors.Is(err, repository.ErrOpportunityNotFound) {
			return nil, fmt.Errorf("failed to check source url: %w", err)
		}
	}

	now := s.now().UTC()
	opp := &model.Opportunity{
		ID:              uuid.New().String(),
		CreatedByUserID: userID,
		Title:           in.Title,
		Organization:    in.Organization,
		Description:     in.Description,
		SourceURL:       in.SourceURL,
		Type:            in.Type,
		Status:          model.StatusInterested,
		Deadline:        in.Deadline,
		Tags:            model.Tags(in.Tags),
		ChecklistItems:  model.Checklist(in.ChecklistItems),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if opp.Tags == nil {
		opp.Tags = model.Tags{}
	}
	if opp.ChecklistItems == nil {
		opp.ChecklistItems = model.Checklist{}
	}

	seed := &model.TimelineStep{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		StepType:      model.StepTypeSaved,
		Label:         model.SavedStepLabel(),
		CreatedAt:     now,
	}

	err = s.repo.Create(ctx, opp, seed)
	if errors.Is(err, repository.ErrDuplicateSourceURL) {
		// lost a race with a concurrent create
		existing, lookupErr := s.repo.BySourceURL(ctx, userID, *opp.SourceURL)
		if lookupErr != nil {
			return nil, invalid("sourceUrl", "An opportunity with this URL already exists")
		}
		return nil, &DuplicateSourceURLError{ExistingID: existing.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	slog.Info("opportunity created", "opportunity_id", opp.ID, "user_id", userID)
	s.notifyIfDue(opp)
	return opp, nil
}

func (s *OpportunityService) ByID(ctx context.Context, userID, id string) (*model.Opportunity, error) {
	return s.repo.ByID(ctx, userID, id)
}

func (s *OpportunityService) List(ctx context.Context, userID string, filter OpportunityFilter) ([]*model.Opportunity, error) {
	if filter.Status != "" && !filter.Status.Valid() && filter.Status != model.StatusDecisionPending {
		return nil, invalid("status", "Invalid status")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("type", "Invalid opportunity type")
	}

	opps, err := s.repo.Opportunities(ctx, userID, repository.OpportunityFilter{
		Status: filter.Status,
		Type:   filter.Type,
		SortBy: repository.OpportunitySortRecent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	if opps == nil {
		opps = []*model.Opportunity{}
	}
	return opps, nil
}

func (s *OpportunityService) Detail(ctx context.Context, userID, id string) (*OpportunityDetail, error) {
	opp, err := s.repo.ByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	steps, err := s.timelineRepo.Steps(ctx, opp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	reminders, err := s.reminderRepo.ByOpportunity(ctx, opp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}

	docs, err := s.documentRepo.ByOpportunity(ctx, userID, opp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	for _, doc := range docs {
		doc.URL = s.documentURL(ctx, doc)
	}

	return &OpportunityDetail{
		Opportunity: opp,
		Timeline:    steps,
		Reminders:   reminders,
		Documents:   docs,
	}, nil
}

// UpdateStatus moves an opportunity to status. Any known status may follow
// any other. A real change writes the new status and exactly one timeline
// step in one transaction; requesting the current status writes nothing.
func (s *OpportunityService) UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Opportunity, error) {
	if !status.Valid() {
		return nil, invalid("status", "Invalid status")
	}

	return s.apply(ctx, userID, id, func(opp *model.Opportunity) error {
		if opp.Status == status {
			return errUnchanged
		}
		opp.Status = status
		return nil
	})
}

// Update applies a partial update. A status in the patch follows the same
// rules as UpdateStatus.
func (s *OpportunityService) Update(ctx context.Context, userID, id string, in UpdateOpportunityInput) (*model.Opportunity, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalid("title", "title is required")
		}
		in.Title = &title
	}
	in.Organization = trimPatch(in.Organization)
	in.Description = trimPatch(in.Description)
	in.SourceURL = trimPatch(in.SourceURL)

	err := validateStruct(in)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("status", "Invalid status")
	}

	if in.SourceURL != nil && *in.SourceURL != "" {
		existing, err := s.repo.BySourceURL(ctx, userID, *in.SourceURL)
		if err == nil && existing.ID != id {
			return nil, &DuplicateSourceURLError{ExistingID: existing.ID}
		}
		if err != nil && !errors.Is(err, repository.ErrOpportunityNotFound) {
			return nil, fmt.Errorf("failed to check source url: %w", err)
		}
	}

	return s.apply(ctx, userID, id, func(opp *model.Opportunity) error {
		if in.Title != nil {
			opp.Title = *in.Title
		}
		if in.Organization != nil {
			opp.Organization = emptyToNil(*in.Organization)
		}
		if in.Description != nil {
			opp.Description = emptyToNil(*in.Description)
		}
		if in.SourceURL != nil {
			opp.SourceURL = emptyToNil(*in.SourceURL)
		}
		if in.Type != nil {
			opp.Type = *in.Type
		}
		if in.Status != nil {
			opp.Status = *in.Status
		}
		if in.ClearDeadline {
			opp.Deadline = nil
		} else if in.Deadline != nil {
			opp.Deadline = in.Deadline
		}
		if in.Tags != nil {
			opp.Tags = model.Tags(*in.Tags)
		}
		if in.ChecklistItems != nil {
			opp.ChecklistItems = model.Checklist(*in.ChecklistItems)
		}
		return nil
	})
}

// apply reads the owned opportunity, mutates a copy and writes it back with
// a compare-and-swap on the status it read. A lost swap re-reads and
// re-applies, so two identical concurrent transitions record one step.
func (s *OpportunityService) apply(ctx context.Context, userID, id string, mutate func(*model.Opportunity) error) (*model.Opportunity, error) {
	for attempt := 1; attempt <= maxStatusAttempts; attempt++ {
		opp, err := s.repo.ByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}

		observed := opp.Status
		err = mutate(opp)
		if errors.Is(err, errUnchanged) {
			return opp, nil
		}
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		opp.UpdatedAt = now

		var step *model.TimelineStep
		if opp.Status != observed {
			step = &model.TimelineStep{
				ID:            uuid.New().String(),
				OpportunityID: opp.ID,
				StepType:      string(opp.Status),
				Label:         model.StatusChangeLabel(opp.Status),
				CreatedAt:     now,
			}
		}

		err = s.repo.Update(ctx, opp, observed, step)
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Debug("status changed underneath update, retrying", "opportunity_id", id, "attempt", attempt)
			continue
		}
		if errors.Is(err, repository.ErrDuplicateSourceURL) {
			return nil, invalid("sourceUrl", "An opportunity with this URL already exists")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update opportunity: %w", err)
		}

		if step != nil {
			slog.Info("opportunity status changed", "opportunity_id", id, "user_id", userID, "from", observed, "to", opp.Status)
		}
		s.notifyIfDue(opp)
		return opp, nil
	}

	return nil, ErrConcurrentUpdate
}

// notifyIfDue wakes the scheduler when opp is already inside the reminder
// horizon, so a deadline set after today's run still gets its nearest offset.
func (s *OpportunityService) notifyIfDue(opp *model.Opportunity) {
	if s.notifier == nil || opp.Deadline == nil || !opp.Status.Actionable() {
		return
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, model.MaxReminderOffset()+1)
	if !opp.Deadline.Before(today) && opp.Deadline.Before(horizon) {
		s.notifier.Notify()
	}
}

// Delete removes the opportunity; timeline, reminders and document rows
// cascade. Document blobs are removed best effort.
func (s *OpportunityService) Delete(ctx context.Context, userID, id string) error {
	opp, err := s.repo.ByID(ctx, userID, id)
	if err != nil {
		return err
	}

	docs, err := s.documentRepo.ByOpportunity(ctx, userID, opp.ID)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	err = s.repo.Delete(ctx, userID, opp.ID)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		delErr := s.storage.Delete(ctx, doc.StoragePath)
		if delErr != nil {
			slog.Warn("failed to delete document blob", "error", delErr, "path", doc.StoragePath, "opportunity_id", id)
		}
	}

	slog.Info("opportunity deleted", "opportunity_id", id, "user_id", userID)
	return nil
}

func (s *OpportunityService) documentURL(ctx context.Context, doc *model.Document) string {
	url, err := s.storage.URL(ctx, doc.StoragePath)
	if err != nil {
		slog.Warn("failed to build document url", "error", err, "document_id", doc.ID)
		return ""
	}
	return url
}

// StatusProgress describes where a status sits on the main flow.
type StatusProgress struct {
	Status    model.Status `json:"status"`
	Label     string       `json:"label"`
	Completed bool         `json:"completed"`
	Current   bool         `json:"current"`
}

// Progress renders the advisory main flow for current. Side states leave
// every flow step incomplete.
func Progress(current model.Status) []StatusProgress {
	idx := current.FlowIndex()
	out := make([]StatusProgress, 0, len(model.StatusFlow))
	for i, st := range model.StatusFlow {
		out = append(out, StatusProgress{
			Status:    st,
			Label:     st.Label(),
			Completed: idx >= 0 && i < idx,
			Current:   i == idx,
		})
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return emptyToNil(strings.TrimSpace(*s))
}

// trimPatch keeps an explicit empty string so the field can be cleared.
func trimPatch(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
