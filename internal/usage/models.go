package usage

import "time"

// UsageLog accumulates rate-limited operations per (user, calendar day).
// Exactly one row per pair, enforced by the unique index; counting always
// goes through the conditional increment in Limiter, never a read-then-write.
type UsageLog struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID        uint64    `gorm:"not null;uniqueIndex:uniq_usage_user_day,priority:1" json:"-"`
	Day           string    `gorm:"type:varchar(10);not null;uniqueIndex:uniq_usage_user_day,priority:2" json:"day"`
	AnalysisCount int       `gorm:"not null;default:1" json:"analysis_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (UsageLog) TableName() string { return "usage_logs" }
