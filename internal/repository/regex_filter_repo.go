package repository

import (
	"context"
	"fmt"

	"github.com/sh4869221b/niconeon/internal/models"

	"gorm.io/gorm"
)

// RegexFilterRepositoryImpl persists regex filters.
// The database assigns filter ids from a serial column, so they only ever grow.
type RegexFilterRepositoryImpl struct {
	db *gorm.DB
}

// NewRegexFilterRepository creates a new regex filter repository
func NewRegexFilterRepository(db *gorm.DB) *RegexFilterRepositoryImpl {
	return &RegexFilterRepositoryImpl{db: db}
}

// InsertRegexFilter stores a pattern and returns the row with its assigned id.
// The pattern must already be validated by the caller.
func (r *RegexFilterRepositoryImpl) InsertRegexFilter(ctx context.Context, pattern string) (*models.RegexFilter, error) {
	f := &models.RegexFilter{Pattern: pattern}

	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, fmt.Errorf("failed to insert regex filter: %w", err)
	}

	return f, nil
}

// RemoveRegexFilter deletes a filter and reports whether it existed
func (r *RegexFilterRepositoryImpl) RemoveRegexFilter(ctx context.Context, filterID int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.RegexFilter{}, filterID)

	if result.Error != nil {
		return false, fmt.Errorf("failed to delete regex filter: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ListRegexFilters returns filters in insertion (id) order
func (r *RegexFilterRepositoryImpl) ListRegexFilters(ctx context.Context) ([]models.RegexFilter, error) {
	var filters []models.RegexFilter

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&filters).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list regex filters: %w", err)
	}

	return filters, nil
}
