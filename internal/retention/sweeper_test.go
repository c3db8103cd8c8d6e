package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeBlobStore struct {
	deleted []string
	fail    map[string]error
}

func (f *fakeBlobStore) Delete(ctx context.Context, storageID string) error {
	_ = ctx
	if err, ok := f.fail[storageID]; ok {
		return err
	}
	f.deleted = append(f.deleted, storageID)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&UploadedFile{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedFile(t *testing.T, db *gorm.DB, storageID string, autoDeleteAt time.Time) *UploadedFile {
	t.Helper()
	f := &UploadedFile{
		ID:             uuid.NewString(),
		ConversationID: uuid.NewString(),
		URL:            "https://blobs.example/" + storageID,
		StorageID:      storageID,
		FileType:       "image/png",
		AutoDeleteAt:   autoDeleteAt,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}

func TestComputeExpiry(t *testing.T) {
	created := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	if got := ComputeExpiry(created, 7); !got.Equal(want) {
		t.Fatalf("ComputeExpiry = %v, want %v", got, want)
	}
}

func TestSweep_DeletesAtExpiryNotBefore(t *testing.T) {
	db := openTestDB(t)
	blobs := &fakeBlobStore{}
	s := NewSweeper(db, blobs)

	expiry := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	f := seedFile(t, db, "blob-1", expiry)

	// one second before expiry: untouched
	res, err := s.Sweep(context.Background(), expiry.Add(-time.Second))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Swept != 0 || len(blobs.deleted) != 0 {
		t.Fatalf("expected no-op before expiry, got %+v", res)
	}

	// exactly at expiry: swept
	res, err = s.Sweep(context.Background(), expiry)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Swept != 1 {
		t.Fatalf("expected 1 swept, got %+v", res)
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "blob-1" {
		t.Fatalf("expected blob-1 deleted, got %v", blobs.deleted)
	}

	var row UploadedFile
	if err := db.Unscoped().First(&row, "id = ?", f.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if !row.DeletedAt.Valid {
		t.Fatalf("expected soft-delete stamp to be set")
	}
}

func TestSweep_Idempotent(t *testing.T) {
	db := openTestDB(t)
	blobs := &fakeBlobStore{}
	s := NewSweeper(db, blobs)

	expiry := time.Now().Add(-time.Hour)
	seedFile(t, db, "blob-2", expiry)

	if _, err := s.Sweep(context.Background(), time.Now()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	res, err := s.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.Swept != 0 || res.Failed != 0 {
		t.Fatalf("second sweep should be a no-op, got %+v", res)
	}
	if len(blobs.deleted) != 1 {
		t.Fatalf("blob deleted %d times, want 1", len(blobs.deleted))
	}
}

func TestSweep_NotFoundCountsAsSuccess(t *testing.T) {
	db := openTestDB(t)
	blobs := &fakeBlobStore{fail: map[string]error{"gone": ErrBlobNotFound}}
	s := NewSweeper(db, blobs)

	f := seedFile(t, db, "gone", time.Now().Add(-time.Hour))

	res, err := s.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Swept != 1 || res.Failed != 0 {
		t.Fatalf("expected already-gone blob to sweep cleanly, got %+v", res)
	}

	var row UploadedFile
	if err := db.Unscoped().First(&row, "id = ?", f.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if !row.DeletedAt.Valid {
		t.Fatalf("expected soft-delete stamp despite missing blob")
	}
}

func TestSweep_BlobFailureLeavesRowForRetry(t *testing.T) {
	db := openTestDB(t)
	blobs := &fakeBlobStore{fail: map[string]error{"flaky": errors.New("upstream 500")}}
	s := NewSweeper(db, blobs)

	f := seedFile(t, db, "flaky", time.Now().Add(-time.Hour))

	res, err := s.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Failed != 1 || res.Swept != 0 {
		t.Fatalf("expected 1 failure, got %+v", res)
	}

	// row must stay live so the next sweep retries it
	var row UploadedFile
	if err := db.First(&row, "id = ?", f.ID).Error; err != nil {
		t.Fatalf("expected row still visible: %v", err)
	}

	// next sweep succeeds once the store recovers
	delete(blobs.fail, "flaky")
	res, err = s.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if res.Swept != 1 {
		t.Fatalf("expected retry to sweep, got %+v", res)
	}
}

func TestSweep_AbortsOnCancelledContext(t *testing.T) {
	db := openTestDB(t)
	blobs := &fakeBlobStore{}
	s := NewSweeper(db, blobs)

	seedFile(t, db, "blob-3", time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sweep(ctx, time.Now()); err == nil {
		t.Fatalf("expected context error")
	}
}
