package usage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrRateLimitExceeded is returned when the per-day ceiling is reached. The
// caller surfaces it; nothing is mutated in that case.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Limiter struct {
	db  *gorm.DB
	loc *time.Location
}

// NewLimiter binds the limiter to one canonical time zone. The day boundary
// is a deployment-wide choice, not a per-request one.
func NewLimiter(db *gorm.DB, loc *time.Location) *Limiter {
	if loc == nil {
		loc = time.UTC
	}
	return &Limiter{db: db, loc: loc}
}

// DayKey renders t as the calendar day in the configured zone.
func (l *Limiter) DayKey(t time.Time) string {
	return t.In(l.loc).Format("2006-01-02")
}

// CheckAndIncrement counts one operation for (userID, day) unless the count
// already reached limit. The increment is a single conditional UPDATE with
// an in-database expression, so concurrent callers cannot under-count; the
// insert path races only on the first operation of a day and falls back to
// the UPDATE on a duplicate key.
func (l *Limiter) CheckAndIncrement(ctx context.Context, userID uint64, day string, limit int) (int, error) {
	if limit <= 0 {
		return 0, ErrRateLimitExceeded
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		res := l.db.WithContext(ctx).Model(&UsageLog{}).
			Where("user_id = ? AND day = ? AND analysis_count < ?", userID, day, limit).
			UpdateColumn("analysis_count", gorm.Expr("analysis_count + 1"))
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 1 {
			var rec UsageLog
			if err := l.db.WithContext(ctx).
				Where("user_id = ? AND day = ?", userID, day).
				First(&rec).Error; err != nil {
				return 0, err
			}
			return rec.AnalysisCount, nil
		}

		// Nothing matched: the row is missing, or the ceiling is reached.
		var rec UsageLog
		err := l.db.WithContext(ctx).
			Where("user_id = ? AND day = ?", userID, day).
			First(&rec).Error
		if err == nil {
			return 0, ErrRateLimitExceeded
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}

		// First operation of the day. A concurrent caller may win this
		// insert; on conflict, loop back to the conditional UPDATE.
		ins := l.db.WithContext(ctx).Create(&UsageLog{UserID: userID, Day: day, AnalysisCount: 1})
		if ins.Error == nil {
			return 1, nil
		}
		lastErr = ins.Error
	}
	return 0, lastErr
}

// Count reports the recorded count for (userID, day); absent rows count 0.
func (l *Limiter) Count(ctx context.Context, userID uint64, day string) (int, error) {
	var rec UsageLog
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.AnalysisCount, nil
}
