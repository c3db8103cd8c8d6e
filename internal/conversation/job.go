package conversation

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// AnalysisJob tracks one asynchronous red-flag analysis run over a
// conversation. The worker moves it queued -> running -> succeeded/failed.
type AnalysisJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserID         uint64 `gorm:"not null;index:uniq_job_user_idempo,unique,priority:1"`
	ConversationID string `gorm:"size:36;index;not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_user_idempo,unique,priority:2" json:"idempotency_key"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	ResultMessageID *string `gorm:"size:36;index"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AnalysisJob) TableName() string { return "analysis_jobs" }
