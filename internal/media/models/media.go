package models

import (
	"time"
)

// MediaRecord is a guest-contributed photo or video. The row is created as a
// placeholder before any bytes exist in object storage; ObjectKey and ID are
// 1:1 and never reused.
type MediaRecord struct {
	ID      string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID string `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`

	// ObjectKey is {ownerID}/{mediaID}.{ext}; set once at placeholder
	// creation, never mutated.
	ObjectKey string `gorm:"column:object_key;not null;uniqueIndex" json:"object_key"`

	// PublicURL is empty until grant issuance succeeds.
	PublicURL string `gorm:"column:public_url;not null;default:''" json:"public_url"`

	// ThumbnailURL is a prediction made at finalization, not a liveness
	// guarantee; the referenced object may not exist yet or ever.
	ThumbnailURL *string `gorm:"column:thumbnail_url" json:"thumbnail_url"`

	MimeType      string `gorm:"column:mime_type;not null" json:"mime_type"`
	FileName      string `gorm:"column:file_name;not null" json:"file_name"`
	FileSizeBytes int64  `gorm:"column:file_size_bytes;not null" json:"file_size_bytes"`

	Caption     string  `gorm:"column:caption;not null;default:''" json:"caption"`
	SituationID *string `gorm:"column:situation_id;type:uuid" json:"situation_id"`

	// Approved is mutated only by a privileged role.
	Approved bool `gorm:"column:approved;not null;default:false" json:"approved"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name
func (MediaRecord) TableName() string {
	return "media_records"
}
