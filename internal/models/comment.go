package models

// CommentEvent is a single time-stamped community comment.
// AtMs is the offset within the video at which the comment is due.
type CommentEvent struct {
	CommentID string `json:"comment_id"`
	AtMs      int64  `json:"at_ms"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// CommentSource reports where the comments of an opened session came from
type CommentSource string

const (
	CommentSourceNetwork CommentSource = "network"
	CommentSourceCache   CommentSource = "cache"
	CommentSourceNone    CommentSource = "none"
)
