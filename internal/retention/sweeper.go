// Package retention bounds storage growth: uploaded blobs carry an expiry
// stamp and a sweeper unlinks them from the external store once the window
// elapses.
package retention

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// ErrBlobNotFound is what a BlobStore returns when the blob is already gone.
// The sweeper treats it as a successful deletion so repeated sweeps stay
// idempotent.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the external store collaborator, addressed by storage id.
type BlobStore interface {
	Delete(ctx context.Context, storageID string) error
}

type SweepResult struct {
	Swept  int
	Failed int
}

type Sweeper struct {
	db    *gorm.DB
	blobs BlobStore
}

func NewSweeper(db *gorm.DB, blobs BlobStore) *Sweeper {
	return &Sweeper{db: db, blobs: blobs}
}

// Sweep soft-deletes every row whose expiry has passed, after the blob is
// confirmed gone. The order is fixed: delete the blob first, mark the row
// second — a row is never marked while its blob may still exist. Rows whose
// blob deletion fails are left untouched for the next run. No transaction
// spans the batch; aborting mid-run via ctx is safe.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	var files []UploadedFile
	if err := s.db.WithContext(ctx).
		Where("auto_delete_at <= ?", now).
		Find(&files).Error; err != nil {
		return res, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := s.blobs.Delete(ctx, f.StorageID); err != nil && !errors.Is(err, ErrBlobNotFound) {
			log.Printf("sweep: blob delete failed file=%s storage_id=%s err=%v", f.ID, f.StorageID, err)
			res.Failed++
			continue
		}

		if err := s.db.WithContext(ctx).Model(&UploadedFile{}).
			Where("id = ?", f.ID).
			Update("deleted_at", now).Error; err != nil {
			log.Printf("sweep: mark soft-deleted failed file=%s err=%v", f.ID, err)
			res.Failed++
			continue
		}
		res.Swept++
	}

	return res, nil
}
