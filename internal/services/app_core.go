package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sh4869221b/niconeon/internal/middleware"
	"github.com/sh4869221b/niconeon/internal/models"
	"github.com/sh4869221b/niconeon/internal/niconico"
	"github.com/sh4869221b/niconeon/internal/services/filter"
	"github.com/sh4869221b/niconeon/internal/services/governor"
	"github.com/sh4869221b/niconeon/internal/services/playback"
	"github.com/sh4869221b/niconeon/internal/services/profile"
	"github.com/sh4869221b/niconeon/internal/services/undo"
)

/*
LEARNING: ONE OWNED CONTROLLER

AppCore owns every piece of mutable state:

  sessions (LRU registry) ─┐
  filter pipeline ─────────┤
  runtime profile ─────────┼── one sync.Mutex
  undo slot ───────────────┘

None of the core packages lock anything themselves. Every exported method here
takes the mutex for its whole critical section, so two calls never interleave.

Ordering inside a mutation is always:
  1. validate (bad input never reaches the store)
  2. write the store
  3. mutate memory
so a failure at any step leaves both sides as they were.

Network fetches happen BEFORE the lock: a slow comment server must not stall
ticks of sessions that are already playing.
*/

// Options tune AppCore at construction
type Options struct {
	MaxSessions    int
	InitialProfile string
}

// AppCore is the controller behind every RPC method
type AppCore struct {
	mu sync.Mutex

	source CommentSource
	store  Store

	filters  *filter.Pipeline
	sessions *playback.Registry
	profiles *profile.Manager
	undo     *undo.Ledger
}

// NewAppCore loads persisted filters and builds the controller
func NewAppCore(ctx context.Context, source CommentSource, store Store, opts Options) (*AppCore, error) {
	if opts.InitialProfile == "" {
		opts.InitialProfile = profile.Balanced
	}
	profiles, err := profile.NewManager(opts.InitialProfile)
	if err != nil {
		return nil, err
	}

	sessions, err := playback.NewRegistry(opts.MaxSessions)
	if err != nil {
		return nil, err
	}

	ngUsers, err := store.NgUsers.ListNgUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ng users: %w", err)
	}
	regexFilters, err := store.Filters.ListRegexFilters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load regex filters: %w", err)
	}

	pipeline := filter.NewPipeline()
	if err := pipeline.Load(ngUsers, regexFilters); err != nil {
		return nil, fmt.Errorf("failed to load filter pipeline: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"ng_users":      len(ngUsers),
		"regex_filters": len(regexFilters),
		"profile":       opts.InitialProfile,
		"max_sessions":  opts.MaxSessions,
	}).Info("✓ App core initialized")

	return &AppCore{
		source:   source,
		store:    store,
		filters:  pipeline,
		sessions: sessions,
		profiles: profiles,
		undo:     undo.NewLedger(),
	}, nil
}

// PingResult answers the health check
type PingResult struct {
	OK bool `json:"ok"`
}

// Ping is the health check
func (a *AppCore) Ping() PingResult {
	return PingResult{OK: true}
}

// OpenVideoResult describes a freshly opened session
type OpenVideoResult struct {
	SessionID     string               `json:"session_id"`
	VideoID       string               `json:"video_id"`
	CommentSource models.CommentSource `json:"comment_source"`
	TotalComments int                  `json:"total_comments"`
}

// OpenVideo resolves the video id, loads its comments and opens a session.
// Fetch and cache failures degrade to cached or empty comments and are never returned.
func (a *AppCore) OpenVideo(ctx context.Context, videoPath, videoID string) (*OpenVideoResult, error) {
	ctx, span := middleware.StartSpan(ctx, "AppCore.OpenVideo",
		attribute.String("video.path", videoPath),
	)
	defer span.End()

	videoID, err := a.resolveVideoID(ctx, videoPath, videoID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}
	log := logrus.WithField("video_id", videoID)

	if videoPath != "" {
		if err := a.store.VideoMap.UpsertVideoMap(ctx, videoPath, videoID); err != nil {
			log.WithError(err).Warn("⚠️  Failed to save video mapping")
		}
	}

	comments, source := a.loadComments(ctx, videoID)

	a.mu.Lock()
	session := a.sessions.Open(videoID, comments)
	open := a.sessions.Len()
	a.mu.Unlock()

	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.String("video.id", videoID),
		attribute.String("comment.source", string(source)),
		attribute.Int("comment.total", session.TotalComments()),
	)
	log.WithFields(logrus.Fields{
		"session_id":     session.ID,
		"comment_source": source,
		"total_comments": session.TotalComments(),
		"open_sessions":  open,
	}).Info("🎬 Opened video session")

	return &OpenVideoResult{
		SessionID:     session.ID,
		VideoID:       videoID,
		CommentSource: source,
		TotalComments: session.TotalComments(),
	}, nil
}

func (a *AppCore) resolveVideoID(ctx context.Context, videoPath, videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID != "" {
		return videoID, nil
	}
	if videoPath == "" {
		return "", fmt.Errorf("%w: video_id or video_path is required", ErrInvalidParams)
	}
	if id, ok := niconico.ExtractVideoID(videoPath); ok {
		return id, nil
	}

	id, found, err := a.store.VideoMap.VideoIDForPath(ctx, videoPath)
	if err != nil {
		logrus.WithError(err).WithField("video_path", videoPath).Warn("⚠️  Failed to look up video mapping")
	}
	if found {
		return id, nil
	}
	return "", fmt.Errorf("%w: cannot derive video_id from %q", ErrInvalidParams, videoPath)
}

func (a *AppCore) loadComments(ctx context.Context, videoID string) ([]models.CommentEvent, models.CommentSource) {
	log := logrus.WithField("video_id", videoID)

	comments, err := a.source.FetchComments(ctx, videoID)
	if err == nil {
		if err := a.store.Cache.SaveCommentCache(ctx, videoID, comments); err != nil {
			log.WithError(err).Warn("⚠️  Failed to save comment cache")
		}
		return comments, models.CommentSourceNetwork
	}

	log.WithError(err).Warn("⚠️  Comment fetch failed, falling back to cache")
	middleware.AddSpanEvent(ctx, "comment.fetch_failed", attribute.String("error", err.Error()))

	cached, found, err := a.store.Cache.LoadCommentCache(ctx, videoID)
	if err != nil {
		log.WithError(err).Warn("⚠️  Failed to load comment cache")
		return nil, models.CommentSourceNone
	}
	if !found {
		return nil, models.CommentSourceNone
	}
	return cached, models.CommentSourceCache
}

// CloseSessionResult reports whether a session was released
type CloseSessionResult struct {
	Closed bool `json:"closed"`
}

// CloseSession releases a session. Closing an unknown session is not an error.
func (a *AppCore) CloseSession(sessionID string) CloseSessionResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CloseSessionResult{Closed: a.sessions.Close(sessionID)}
}

// PlaybackTickResult is the governed emission of one tick batch
type PlaybackTickResult struct {
	EmitComments      []models.CommentEvent `json:"emit_comments"`
	SamplesProcessed  int                   `json:"samples_processed"`
	FinalPositionMs   int64                 `json:"final_position_ms"`
	CoalescedComments int                   `json:"coalesced_comments"`
	DroppedComments   int                   `json:"dropped_comments"`
	OverBudget        bool                  `json:"over_budget"`
	Profile           string                `json:"profile"`
	TargetFPS         int                   `json:"target_fps"`
}

// PlaybackTick applies a batch of samples to a session, then coalesces and budgets the result
func (a *AppCore) PlaybackTick(ctx context.Context, sessionID string, samples []playback.Sample) (*PlaybackTickResult, error) {
	ctx, span := middleware.StartSpan(ctx, "AppCore.PlaybackTick",
		attribute.String("session.id", sessionID),
		attribute.Int("tick.samples", len(samples)),
	)
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	session, err := a.sessions.Get(sessionID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	batch := session.ApplyBatch(samples, a.filters)
	active := a.profiles.Active()
	governed := governor.Apply(batch.Emitted, active.Governor())

	span.SetAttributes(
		attribute.Int("tick.emitted", len(governed.Comments)),
		attribute.Int("tick.coalesced", governed.CoalescedComments),
		attribute.Int("tick.dropped", governed.DroppedComments),
	)
	if governed.OverBudget {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"dropped":    governed.DroppedComments,
			"budget":     active.MaxEmitPerTick,
		}).Debug("🚦 Tick over emit budget")
	}

	return &PlaybackTickResult{
		EmitComments:      governed.Comments,
		SamplesProcessed:  batch.SamplesProcessed,
		FinalPositionMs:   batch.FinalPositionMs,
		CoalescedComments: governed.CoalescedComments,
		DroppedComments:   governed.DroppedComments,
		OverBudget:        governed.OverBudget,
		Profile:           active.Profile,
		TargetFPS:         active.TargetFPS,
	}, nil
}

// AddNgUserResult reports an NG add and the token that can undo it
type AddNgUserResult struct {
	Applied      bool   `json:"applied"`
	UndoToken    string `json:"undo_token"`
	HiddenUserID string `json:"hidden_user_id"`
}

// AddNgUser blocks a user. Only an add that newly blocks issues an undo token.
func (a *AppCore) AddNgUser(ctx context.Context, userID string) (*AddNgUserResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidParams)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.store.NgUsers.AddNgUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to save ng user: %w", err)
	}

	res := &AddNgUserResult{HiddenUserID: userID}
	if a.filters.AddNgUser(userID) {
		res.Applied = true
		res.UndoToken = a.undo.Issue(userID)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "applied": res.Applied}).Info("🙈 NG user added")
	return res, nil
}

// RemoveNgUserResult reports an NG removal
type RemoveNgUserResult struct {
	Removed bool   `json:"removed"`
	UserID  string `json:"user_id"`
}

// RemoveNgUser unblocks a user and invalidates a pending undo for that user
func (a *AppCore) RemoveNgUser(ctx context.Context, userID string) (*RemoveNgUserResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidParams)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	removedDB, err := a.store.NgUsers.RemoveNgUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove ng user: %w", err)
	}
	removedMem := a.filters.RemoveNgUser(userID)
	a.undo.Forget(userID)

	return &RemoveNgUserResult{Removed: removedDB || removedMem, UserID: userID}, nil
}

// UndoLastNgResult reports whether the last NG add was reverted
type UndoLastNgResult struct {
	Restored bool    `json:"restored"`
	UserID   *string `json:"user_id"`
}

// UndoLastNg reverts the most recent qualifying NG add.
// A wrong, stale or empty token is a soft failure, not an error.
func (a *AppCore) UndoLastNg(ctx context.Context, token string) (*UndoLastNgResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	userID, ok := a.undo.Peek(token)
	if !ok {
		return &UndoLastNgResult{Restored: false}, nil
	}

	if _, err := a.store.NgUsers.RemoveNgUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to remove ng user: %w", err)
	}
	a.filters.RemoveNgUser(userID)
	a.undo.Redeem(token)

	logrus.WithField("user_id", userID).Info("↩️  NG user add undone")
	return &UndoLastNgResult{Restored: true, UserID: &userID}, nil
}

// AddRegexFilterResult carries the store-assigned filter id
type AddRegexFilterResult struct {
	FilterID int64 `json:"filter_id"`
}

// AddRegexFilter validates the pattern, persists it and then installs it
func (a *AppCore) AddRegexFilter(ctx context.Context, pattern string) (*AddRegexFilterResult, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", ErrInvalidParams)
	}
	re, err := filter.Compile(pattern)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	saved, err := a.store.Filters.InsertRegexFilter(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to insert regex filter: %w", err)
	}
	a.filters.AddCompiled(*saved, re)

	logrus.WithFields(logrus.Fields{"filter_id": saved.ID, "pattern": pattern}).Info("🔎 Regex filter added")
	return &AddRegexFilterResult{FilterID: saved.ID}, nil
}

// RemoveRegexFilterResult reports a regex filter removal
type RemoveRegexFilterResult struct {
	Removed bool `json:"removed"`
}

// RemoveRegexFilter deletes a filter from the store and the pipeline
func (a *AppCore) RemoveRegexFilter(ctx context.Context, filterID int64) (*RemoveRegexFilterResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removedDB, err := a.store.Filters.RemoveRegexFilter(ctx, filterID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete regex filter: %w", err)
	}
	removedMem := a.filters.RemoveRegexFilter(filterID)

	return &RemoveRegexFilterResult{Removed: removedDB || removedMem}, nil
}

// ListFiltersResult is a snapshot of the filter pipeline
type ListFiltersResult struct {
	NgUsers      []string             `json:"ng_users"`
	RegexFilters []models.RegexFilter `json:"regex_filters"`
}

// ListFilters returns NG users sorted and regex filters in insertion order
func (a *AppCore) ListFilters() ListFiltersResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	return ListFiltersResult{
		NgUsers:      a.filters.ListNgUsers(),
		RegexFilters: a.filters.ListRegexFilters(),
	}
}

// SetRuntimeProfile switches the process-wide profile for every later tick batch
func (a *AppCore) SetRuntimeProfile(name string, overrides profile.Overrides) (profile.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg, err := a.profiles.Select(name, overrides)
	if err != nil {
		return cfg, err
	}
	logrus.WithFields(logrus.Fields{
		"profile":           cfg.Profile,
		"target_fps":        cfg.TargetFPS,
		"max_emit_per_tick": cfg.MaxEmitPerTick,
		"coalesce":          cfg.CoalesceSameContent,
	}).Info("⚙️  Runtime profile changed")
	return cfg, nil
}

// RuntimeProfile returns the active profile
func (a *AppCore) RuntimeProfile() profile.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profiles.Active()
}
