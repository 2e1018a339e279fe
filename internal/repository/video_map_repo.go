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

// VideoMapRepositoryImpl remembers which video id a local file was opened as
type VideoMapRepositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewVideoMapRepository creates a new video map repository
func NewVideoMapRepository(db *gorm.DB) *VideoMapRepositoryImpl {
	return &VideoMapRepositoryImpl{db: db, now: time.Now}
}

// UpsertVideoMap records the mapping and bumps last_opened_at
func (r *VideoMapRepositoryImpl) UpsertVideoMap(ctx context.Context, videoPath, videoID string) error {
	row := &models.VideoMap{
		VideoPath:    videoPath,
		VideoID:      videoID,
		LastOpenedAt: r.now(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_path"}},
			DoUpdates: clause.AssignmentColumns([]string{"video_id", "last_opened_at"}),
		}).
		Create(row).Error

	if err != nil {
		return fmt.Errorf("failed to save video mapping: %w", err)
	}

	return nil
}

// VideoIDForPath looks up a previously stored mapping
func (r *VideoMapRepositoryImpl) VideoIDForPath(ctx context.Context, videoPath string) (string, bool, error) {
	var row models.VideoMap

	err := r.db.WithContext(ctx).
		Where("video_path = ?", videoPath).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load video mapping: %w", err)
	}

	return row.VideoID, true, nil
}
