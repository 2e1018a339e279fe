package playback

import (
	"sort"
	"time"

	"github.com/sh4869221b/niconeon/internal/models"
)

/*
LEARNING: HALF-OPEN PLAYBACK WINDOWS

Every forward sample emits the comments due in (from_ms, to_ms]:

  last_position_ms ──────────────► position_ms
         (excluded)                 (included)

- The open left edge means a comment sitting exactly on the previous position
  is never emitted twice.
- Comments are sorted by at_ms, so the cursor only ever moves forward during
  playback. Each sample continues where the previous one stopped instead of
  rescanning from the start.
- Seeks (explicit or any backward move) relocate the cursor with a binary
  search and emit nothing.
*/

// Sample is one playback position report
type Sample struct {
	PositionMs int64 `json:"position_ms"`
	Paused     bool  `json:"paused"`
	IsSeek     bool  `json:"is_seek"`
}

// Hider decides comment visibility. The filter pipeline implements it.
type Hider interface {
	ShouldHide(c *models.CommentEvent) bool
}

// BatchResult is the outcome of applying a batch of samples
type BatchResult struct {
	Emitted          []models.CommentEvent
	SamplesProcessed int
	FinalPositionMs  int64
}

// Session is one open video with its playback cursor
type Session struct {
	*models.Session

	comments       []models.CommentEvent
	cursor         int
	lastPositionMs int64
}

// NewSession installs a sorted copy of comments with the cursor at the start boundary
func NewSession(meta *models.Session, comments []models.CommentEvent) *Session {
	sorted := make([]models.CommentEvent, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AtMs < sorted[j].AtMs
	})

	return &Session{
		Session:        meta,
		comments:       sorted,
		cursor:         cursorFor(sorted, 0),
		lastPositionMs: 0,
	}
}

// TotalComments is the number of comments installed in the session
func (s *Session) TotalComments() int {
	return len(s.comments)
}

// Cursor is the index of the next comment not yet considered
func (s *Session) Cursor() int {
	return s.cursor
}

// LastPositionMs is the position reported by the most recent sample
func (s *Session) LastPositionMs() int64 {
	return s.lastPositionMs
}

// ApplyBatch runs the samples in order and accumulates what they emit
func (s *Session) ApplyBatch(samples []Sample, hider Hider) BatchResult {
	var emitted []models.CommentEvent
	for _, sample := range samples {
		emitted = s.apply(sample, hider, emitted)
	}
	s.LastActiveAt = time.Now()

	return BatchResult{
		Emitted:          emitted,
		SamplesProcessed: len(samples),
		FinalPositionMs:  s.lastPositionMs,
	}
}

func (s *Session) apply(sample Sample, hider Hider, out []models.CommentEvent) []models.CommentEvent {
	// Backward jitter from the player clock also lands here; that is intended.
	if sample.IsSeek || sample.PositionMs < s.lastPositionMs {
		s.cursor = cursorFor(s.comments, sample.PositionMs)
		s.lastPositionMs = sample.PositionMs
		return out
	}

	if sample.Paused {
		s.lastPositionMs = sample.PositionMs
		return out
	}

	fromMs := s.lastPositionMs
	toMs := sample.PositionMs
	for s.cursor < len(s.comments) {
		c := &s.comments[s.cursor]
		if c.AtMs > toMs {
			break
		}
		if c.AtMs > fromMs && (hider == nil || !hider.ShouldHide(c)) {
			out = append(out, *c)
		}
		s.cursor++
	}

	s.lastPositionMs = toMs
	return out
}

// cursorFor returns the number of comments with AtMs <= positionMs
func cursorFor(comments []models.CommentEvent, positionMs int64) int {
	return sort.Search(len(comments), func(i int) bool {
		return comments[i].AtMs > positionMs
	})
}
