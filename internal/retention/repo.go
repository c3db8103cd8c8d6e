package retention

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateFile(ctx context.Context, f *UploadedFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// ListByConversation returns live file records only; swept rows stay in the
// table for audit but never surface here.
func (r *Repo) ListByConversation(ctx context.Context, conversationID string) ([]UploadedFile, error) {
	var files []UploadedFile
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}
