package model

import "time"

const (
	DefaultTimezone        = "UTC"
	DefaultReminderCadence = "1,3,7"
)

// Profile holds the user-editable settings: display name, timezone and the
// default reminder cadence.
type Profile struct {
	ID                     string    `db:"id" json:"-"`
	UserID                 string    `db:"user_id" json:"userId"`
	Name                   string    `db:"name" json:"name"`
	Timezone               string    `db:"timezone" json:"timezone"`
	DefaultReminderCadence string    `db:"default_reminder_cadence" json:"defaultReminderCadence"`
	CreatedAt              time.Time `db:"created_at" json:"-"`
	UpdatedAt              time.Time `db:"updated_at" json:"updatedAt"`
}
