package model

import (
	"time"
)

// StepTypeSaved marks the seed entry written when an opportunity is created.
const StepTypeSaved = "saved"

// TimelineStep is an append-only audit entry. StepType mirrors a Status value
// or StepTypeSaved.
type TimelineStep struct {
	ID            string    `db:"id" json:"id"`
	OpportunityID string    `db:"opportunity_id" json:"opportunityId"`
	StepType      string    `db:"step_type" json:"stepType"`
	Label         string    `db:"label" json:"label"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

func SavedStepLabel() string {
	return "Saved opportunity"
}

func StatusChangeLabel(s Status) string {
	return "Status changed to " + s.Humanize()
}
