package model

import (
	"time"
)

const (
	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

const ReminderChannelEmail = "email"

// ReminderOffsets are the days-before-deadline at which reminders fire.
var ReminderOffsets = []int{1, 3, 7}

// MaxReminderOffset is the furthest-out entry of ReminderOffsets.
func MaxReminderOffset() int {
	furthest := 0
	for _, o := range ReminderOffsets {
		if o > furthest {
			furthest = o
		}
	}
	return furthest
}

// Reminder is a ledger row written by the scheduler. A sent row for an
// (opportunity, offset) pair is the only signal that the pair was delivered.
type Reminder struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"userId"`
	OpportunityID string     `db:"opportunity_id" json:"opportunityId"`
	ScheduledAt   time.Time  `db:"scheduled_at" json:"scheduledAt"`
	OffsetDays    int        `db:"offset_days" json:"offsetDays"`
	Channel       string     `db:"channel" json:"channel"`
	Status        string     `db:"status" json:"status"`
	SentAt        *time.Time `db:"sent_at" json:"sentAt"`
	Error         *string    `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

func (r *Reminder) IsSent() bool {
	return r.Status == ReminderStatusSent
}

// DueOpportunity is an opportunity joined with what the scheduler needs to
// reach its owner.
type DueOpportunity struct {
	Opportunity
	OwnerEmail string `db:"owner_email"`
	OwnerName  string `db:"owner_name"`
}
