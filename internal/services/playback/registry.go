package playback

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/sh4869221b/niconeon/internal/models"
)

// ErrSessionNotFound is returned for unknown, closed or evicted session ids
var ErrSessionNotFound = errors.New("session not found")

// DefaultCapacity bounds the registry when no capacity is configured
const DefaultCapacity = 256

// Registry owns every open session.
// It is an LRU: opening a session past capacity evicts the least recently
// opened or ticked one. Not safe for concurrent use.
type Registry struct {
	sessions *lru.Cache[string, *Session]
	evicted  int
	closing  string
}

// NewRegistry creates a registry bounded to capacity sessions
func NewRegistry(capacity int) (*Registry, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	r := &Registry{}
	cache, err := lru.NewWithEvict(capacity, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	r.sessions = cache
	return r, nil
}

func (r *Registry) onEvict(id string, s *Session) {
	// the cache also calls back on explicit Remove
	if id == r.closing {
		return
	}
	r.evicted++
	logrus.WithFields(logrus.Fields{
		"session_id": id,
		"video_id":   s.VideoID,
	}).Info("🧹 Evicted least recently used session")
}

// Open creates a session for videoID over comments and registers it
func (r *Registry) Open(videoID string, comments []models.CommentEvent) *Session {
	s := NewSession(models.NewSession(videoID), comments)
	r.sessions.Add(s.ID, s)
	return s
}

// Get returns the session and marks it recently used
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close removes a session and reports whether it was open.
// An explicit close is not counted as an eviction.
func (r *Registry) Close(id string) bool {
	r.closing = id
	defer func() { r.closing = "" }()
	return r.sessions.Remove(id)
}

// Len is the number of open sessions
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Evicted is the number of sessions dropped by the capacity policy
func (r *Registry) Evicted() int {
	return r.evicted
}
