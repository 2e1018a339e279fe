package repository

import (
	"context"
	"fmt"

	"github.com/sh4869221b/niconeon/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
LEARNING: IDEMPOTENT WRITES WITH ON CONFLICT

Blocking an already blocked user must not fail, and the caller still wants to
know whether anything changed:

  INSERT ... ON CONFLICT (user_id) DO NOTHING
  RowsAffected == 1  → newly inserted
  RowsAffected == 0  → already present

One round trip, no SELECT-then-INSERT race.
*/

// NgUserRepositoryImpl persists blocked users
type NgUserRepositoryImpl struct {
	db *gorm.DB
}

// NewNgUserRepository creates a new NG user repository
func NewNgUserRepository(db *gorm.DB) *NgUserRepositoryImpl {
	return &NgUserRepositoryImpl{db: db}
}

// AddNgUser inserts a user and reports whether the row is new
func (r *NgUserRepositoryImpl) AddNgUser(ctx context.Context, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NgUser{UserID: userID})

	if result.Error != nil {
		return false, fmt.Errorf("failed to insert ng user: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// RemoveNgUser deletes a user and reports whether a row existed
func (r *NgUserRepositoryImpl) RemoveNgUser(ctx context.Context, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.NgUser{})

	if result.Error != nil {
		return false, fmt.Errorf("failed to delete ng user: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ListNgUsers returns every blocked user id sorted ascending
func (r *NgUserRepositoryImpl) ListNgUsers(ctx context.Context) ([]string, error) {
	var users []string

	err := r.db.WithContext(ctx).
		Model(&models.NgUser{}).
		Order("user_id ASC").
		Pluck("user_id", &users).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list ng users: %w", err)
	}

	return users, nil
}
