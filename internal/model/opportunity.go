package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type OpportunityType string

const (
	OpportunityTypeScholarship OpportunityType = "scholarship"
	OpportunityTypeInternship  OpportunityType = "internship"
	OpportunityTypeFellowship  OpportunityType = "fellowship"
	OpportunityTypeJob         OpportunityType = "job"
)

var OpportunityTypes = []OpportunityType{
	OpportunityTypeScholarship,
	OpportunityTypeInternship,
	OpportunityTypeFellowship,
	OpportunityTypeJob,
}

func (t OpportunityType) Valid() bool {
	for _, v := range OpportunityTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusInterested Status = "interested"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusInterview  Status = "interview"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusArchived   Status = "archived"

	// StatusDecisionPending is never assigned by the status workflow. It is
	// kept because the reminder query has always listed it as actionable.
	StatusDecisionPending Status = "decision_pending"
)

// Statuses lists every status a user may set. Any of them is reachable from
// any other; the workflow only rejects unknown values.
var Statuses = []Status{
	StatusInterested,
	StatusInProgress,
	StatusSubmitted,
	StatusInterview,
	StatusAccepted,
	StatusRejected,
	StatusArchived,
}

// StatusFlow is the advisory main sequence used to render progress.
// Rejected and archived sit outside of it.
var StatusFlow = []Status{
	StatusInterested,
	StatusInProgress,
	StatusSubmitted,
	StatusInterview,
	StatusAccepted,
}

// ActionableStatuses are the statuses that still receive deadline reminders.
var ActionableStatuses = []Status{
	StatusInterested,
	StatusInProgress,
	StatusDecisionPending,
}

// Actionable reports whether s still receives deadline reminders.
func (s Status) Actionable() bool {
	for _, v := range ActionableStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Humanize replaces underscores with spaces: in_progress -> "in progress".
func (s Status) Humanize() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// Label is the title-cased display name: in_progress -> "In Progress".
func (s Status) Label() string {
	return cases.Title(language.English).String(s.Humanize())
}

// FlowIndex returns the position of s in StatusFlow, or -1 for side states.
func (s Status) FlowIndex() int {
	for i, v := range StatusFlow {
		if v == s {
			return i
		}
	}
	return -1
}

type Opportunity struct {
	ID              string          `db:"id" json:"id"`
	CreatedByUserID string          `db:"created_by_user_id" json:"createdByUserId"`
	Title           string          `db:"title" json:"title"`
	Organization    *string         `db:"organization" json:"organization"`
	Description     *string         `db:"description" json:"description"`
	SourceURL       *string         `db:"source_url" json:"sourceUrl"`
	Type            OpportunityType `db:"opportunity_type" json:"opportunityType"`
	Status          Status          `db:"status" json:"status"`
	Deadline        *time.Time      `db:"deadline" json:"deadline"`
	Tags            Tags            `db:"tags" json:"tags"`
	ChecklistItems  Checklist       `db:"checklist_items" json:"checklistItems"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

func (o *Opportunity) OwnedBy(userID string) bool {
	return o.CreatedByUserID == userID
}

type ChecklistItem struct {
	Label    string `json:"label" validate:"required"`
	Done     bool   `json:"done"`
	Optional bool   `json:"optional,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Tags is stored as a JSON array in a text column.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	out := []string{}
	err := scanJSON(src, &out)
	if err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = out
	return nil
}

// Checklist is stored as a JSON array of items in a text column.
type Checklist []ChecklistItem

func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]ChecklistItem(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Checklist) Scan(src any) error {
	out := []ChecklistItem{}
	err := scanJSON(src, &out)
	if err != nil {
		return fmt.Errorf("scan checklist: %w", err)
	}
	*c = out
	return nil
}

// scanJSON decodes a text column. NULL and malformed legacy values decode to
// an empty list rather than failing the whole row.
func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T", src)
	}

	if len(raw) == 0 {
		return nil
	}

	_ = json.Unmarshal(raw, dst)
	return nil
}
