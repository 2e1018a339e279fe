package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Session is the metadata of an open playback session.
// The cursor and comment list live in the playback package; this part is what
// gets logged and reported back to clients.
type Session struct {
	ID           string    `json:"session_id"`
	VideoID      string    `json:"video_id"`
	OpenedAt     time.Time `json:"opened_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NotificationMethod names a server-initiated JSON-RPC notification
type NotificationMethod string

const (
	// NotificationFiltersChanged carries a fresh filter snapshot after any filter mutation
	NotificationFiltersChanged NotificationMethod = "filters_changed"
	// NotificationProfileChanged carries the new runtime profile after set_runtime_profile
	NotificationProfileChanged NotificationMethod = "profile_changed"
)

// NewSession creates session metadata with a fresh KSUID.
// KSUIDs sort by creation time, which keeps session ids readable in logs.
func NewSession(videoID string) *Session {
	now := time.Now()
	return &Session{
		ID:           ksuid.New().String(),
		VideoID:      videoID,
		OpenedAt:     now,
		LastActiveAt: now,
	}
}
