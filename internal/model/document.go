package model

import (
	"time"
)

const DocumentCategoryOther = "other"

type Document struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	OpportunityID *string   `db:"opportunity_id" json:"opportunityId"`
	Filename      string    `db:"filename" json:"filename"` // original upload name
	StoragePath   string    `db:"storage_path" json:"-"`
	FileSize      int64     `db:"file_size" json:"fileSize"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	Category      string    `db:"category" json:"category"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`

	// Computed fields (not in database)
	URL string `db:"-" json:"fileUrl"`
}
