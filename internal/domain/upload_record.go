package domain

import (
	"context"
	"time"
)

// UploadRecord is a ledger entry for an object this service uploaded
type UploadRecord struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Path         string    `bson:"path" json:"path"`
	URL          string    `bson:"url" json:"url"`
	OriginalName string    `bson:"original_name" json:"original_name"`
	MimeType     string    `bson:"mime_type" json:"mime_type"`
	Size         int64     `bson:"size" json:"size"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UploadLedger keeps track of uploaded objects
type UploadLedger interface {
	Record(ctx context.Context, record *UploadRecord) error
	DeleteByPath(ctx context.Context, path string) error
	ListRecent(ctx context.Context, limit int64) ([]*UploadRecord, error)
}
