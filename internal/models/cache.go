package models

import "time"

/*
LEARNING: COMMENT CACHE

One row per video id. The whole comment list is stored as a JSON document so
that an offline open can rebuild a session exactly as the last successful fetch
returned it.

Flow:
  open_video → fetch OK   → overwrite cache row
  open_video → fetch FAIL → read cache row → empty list if missing
*/

// CommentCache is the last successfully fetched comment list of a video
type CommentCache struct {
	VideoID   string         `json:"video_id" gorm:"type:text;primaryKey"`
	FetchedAt time.Time      `json:"fetched_at" gorm:"not null"`
	Comments  []CommentEvent `json:"comments" gorm:"type:jsonb;serializer:json;not null"`
}

// TableName override
func (CommentCache) TableName() string {
	return "comment_cache"
}

// VideoMap remembers which video id a local file was last opened as
type VideoMap struct {
	VideoPath    string    `json:"video_path" gorm:"type:text;primaryKey"`
	VideoID      string    `json:"video_id" gorm:"type:text;not null"`
	LastOpenedAt time.Time `json:"last_opened_at" gorm:"not null"`
}

// TableName override
func (VideoMap) TableName() string {
	return "video_map"
}
