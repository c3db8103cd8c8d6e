package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// serialize writes; sqlite has a single writer anyway
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&UsageLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCheckAndIncrement_CountsUpToLimit(t *testing.T) {
	db := openTestDB(t)
	l := NewLimiter(db, time.UTC)
	ctx := context.Background()

	const limit = 3
	day := l.DayKey(time.Now())

	for i := 1; i <= limit; i++ {
		n, err := l.CheckAndIncrement(ctx, 1, day, limit)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if n != i {
			t.Fatalf("call %d: expected count %d, got %d", i, i, n)
		}
	}

	if _, err := l.CheckAndIncrement(ctx, 1, day, limit); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}

	// failed call must not mutate
	n, err := l.Count(ctx, 1, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != limit {
		t.Fatalf("expected count to stay at %d, got %d", limit, n)
	}
}

func TestCheckAndIncrement_SingleRowPerUserAndDay(t *testing.T) {
	db := openTestDB(t)
	l := NewLimiter(db, time.UTC)
	ctx := context.Background()

	day := l.DayKey(time.Now())
	for i := 0; i < 4; i++ {
		if _, err := l.CheckAndIncrement(ctx, 7, day, 10); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	var rows int64
	if err := db.Model(&UsageLog{}).Where("user_id = ? AND day = ?", uint64(7), day).Count(&rows).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 accumulated row, got %d", rows)
	}
}

func TestCheckAndIncrement_Concurrent(t *testing.T) {
	db := openTestDB(t)
	l := NewLimiter(db, time.UTC)
	ctx := context.Background()

	const limit = 8
	day := l.DayKey(time.Now())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		succeed  int
		exceeded int
	)
	for i := 0; i < limit+3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.CheckAndIncrement(ctx, 42, day, limit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeed++
			case errors.Is(err, ErrRateLimitExceeded):
				exceeded++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeed != limit {
		t.Fatalf("expected exactly %d successes, got %d", limit, succeed)
	}
	if exceeded != 3 {
		t.Fatalf("expected 3 rate-limited calls, got %d", exceeded)
	}

	n, err := l.Count(ctx, 42, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != limit {
		t.Fatalf("expected final count %d, got %d", limit, n)
	}
}

func TestCheckAndIncrement_SeparateDays(t *testing.T) {
	db := openTestDB(t)
	l := NewLimiter(db, time.UTC)
	ctx := context.Background()

	if _, err := l.CheckAndIncrement(ctx, 1, "2026-08-27", 1); err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if _, err := l.CheckAndIncrement(ctx, 1, "2026-08-27", 1); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ceiling on day 1, got %v", err)
	}
	// new day, fresh budget
	if _, err := l.CheckAndIncrement(ctx, 1, "2026-08-28", 1); err != nil {
		t.Fatalf("day 2: %v", err)
	}
}

func TestDayKey_UsesConfiguredZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	l := NewLimiter(nil, tokyo)

	// 23:30 UTC on the 27th is already the 28th in Tokyo
	ts := time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)
	if got := l.DayKey(ts); got != "2026-08-28" {
		t.Fatalf("expected 2026-08-28, got %s", got)
	}
}

func TestCheckAndIncrement_ZeroLimit(t *testing.T) {
	db := openTestDB(t)
	l := NewLimiter(db, time.UTC)

	if _, err := l.CheckAndIncrement(context.Background(), 1, "2026-08-28", 0); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded for zero limit, got %v", err)
	}
}
