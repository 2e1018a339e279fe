package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sh4869221b/niconeon/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
LEARNING: ONE ROW PER VIDEO

The cache keeps only the latest successful fetch for each video. The comment
list is serialized into a single jsonb column, so a save is one upsert and a
load is one primary key lookup:

  open_video ─ fetch ok ──► SaveCommentCache (upsert)
             └ fetch err ─► LoadCommentCache (fallback)
*/

// CommentCacheRepositoryImpl stores the last fetched comment list per video
type CommentCacheRepositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCommentCacheRepository creates a new comment cache repository
func NewCommentCacheRepository(db *gorm.DB) *CommentCacheRepositoryImpl {
	return &CommentCacheRepositoryImpl{db: db, now: time.Now}
}

// SaveCommentCache replaces the cached comments of a video
func (r *CommentCacheRepositoryImpl) SaveCommentCache(ctx context.Context, videoID string, comments []models.CommentEvent) error {
	if comments == nil {
		comments = []models.CommentEvent{}
	}
	row := &models.CommentCache{
		VideoID:   videoID,
		FetchedAt: r.now(),
		Comments:  comments,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"fetched_at", "comments"}),
		}).
		Create(row).Error

	if err != nil {
		return fmt.Errorf("failed to save comment cache: %w", err)
	}

	return nil
}

// LoadCommentCache returns the cached comments of a video and whether a cache row exists
func (r *CommentCacheRepositoryImpl) LoadCommentCache(ctx context.Context, videoID string) ([]models.CommentEvent, bool, error) {
	var row models.CommentCache

	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load comment cache: %w", err)
	}

	return row.Comments, true, nil
}
