package retention

import (
	"time"

	"gorm.io/gorm"
)

// UploadedFile tracks a blob kept at the external store. AutoDeleteAt is
// stamped once at creation from the retention window in force at that
// moment; changing the window later never reschedules existing rows.
type UploadedFile struct {
	ID             string `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID string `gorm:"type:char(36);not null;index" json:"conversation_id"`

	URL       string `gorm:"type:text;not null" json:"url"`
	StorageID string `gorm:"type:varchar(255);not null" json:"storage_id"`
	FileType  string `gorm:"type:varchar(64);not null" json:"file_type"`
	FileSize  *int64 `json:"file_size,omitempty"`

	CreatedAt    time.Time      `json:"created_at"`
	AutoDeleteAt time.Time      `gorm:"index;not null" json:"auto_delete_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UploadedFile) TableName() string { return "uploaded_files" }

// ComputeExpiry returns the instant a blob created at createdAt becomes
// eligible for the sweep.
func ComputeExpiry(createdAt time.Time, retentionDays int) time.Time {
	return createdAt.Add(time.Duration(retentionDays) * 24 * time.Hour)
}
