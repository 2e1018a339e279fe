package models

import "time"

// NgUser is a blocked commenter. Only membership matters.
type NgUser struct {
	UserID    string    `json:"user_id" gorm:"type:text;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime;index"`
}

// TableName override
func (NgUser) TableName() string {
	return "ng_users"
}

// RegexFilter is a persisted text filter.
// The ID is assigned by the store and grows monotonically, so ordering by ID
// is insertion order.
type RegexFilter struct {
	ID        int64     `json:"filter_id" gorm:"column:id;primaryKey;autoIncrement"`
	Pattern   string    `json:"pattern" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName override
func (RegexFilter) TableName() string {
	return "regex_filters"
}
