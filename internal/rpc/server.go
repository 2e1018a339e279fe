package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sh4869221b/niconeon/internal/models"
	"github.com/sh4869221b/niconeon/internal/services"
	"github.com/sh4869221b/niconeon/internal/services/playback"
	"github.com/sh4869221b/niconeon/internal/services/profile"
)

/*
LEARNING: ONE DISPATCHER, MANY TRANSPORTS

The same Server answers every transport:

  stdin line ─┐
  POST /rpc  ─┼─► Server.HandleMessage ─► Core (AppCore)
  ws frame   ─┘

Each transport only moves bytes. Method lookup, param decoding and error codes
live here and nowhere else.
*/

// Core is the controller the server dispatches to
type Core interface {
	Ping() services.PingResult
	OpenVideo(ctx context.Context, videoPath, videoID string) (*services.OpenVideoResult, error)
	CloseSession(sessionID string) services.CloseSessionResult
	PlaybackTick(ctx context.Context, sessionID string, samples []playback.Sample) (*services.PlaybackTickResult, error)
	AddNgUser(ctx context.Context, userID string) (*services.AddNgUserResult, error)
	RemoveNgUser(ctx context.Context, userID string) (*services.RemoveNgUserResult, error)
	UndoLastNg(ctx context.Context, token string) (*services.UndoLastNgResult, error)
	AddRegexFilter(ctx context.Context, pattern string) (*services.AddRegexFilterResult, error)
	RemoveRegexFilter(ctx context.Context, filterID int64) (*services.RemoveRegexFilterResult, error)
	ListFilters() services.ListFiltersResult
	SetRuntimeProfile(name string, overrides profile.Overrides) (profile.Config, error)
	RuntimeProfile() profile.Config
}

// Notifier pushes notifications to connected clients
type Notifier interface {
	Notify(n *Notification)
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server decodes requests, calls Core and encodes responses
type Server struct {
	core     Core
	notifier Notifier
	methods  map[string]handlerFunc
}

// NewServer creates a server for core. notifier may be nil.
func NewServer(core Core, notifier Notifier) *Server {
	s := &Server{core: core, notifier: notifier}
	s.methods = map[string]handlerFunc{
		"ping":                s.ping,
		"open_video":          s.openVideo,
		"close_session":       s.closeSession,
		"playback_tick":       s.playbackTick,
		"add_ng_user":         s.addNgUser,
		"remove_ng_user":      s.removeNgUser,
		"undo_last_ng":        s.undoLastNg,
		"add_regex_filter":    s.addRegexFilter,
		"remove_regex_filter": s.removeRegexFilter,
		"list_filters":        s.listFilters,
		"set_runtime_profile": s.setRuntimeProfile,
		"get_runtime_profile": s.getRuntimeProfile,
	}
	return s
}

// HandleMessage parses one raw JSON-RPC request and answers it
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Failure(nil, CodeParseError, fmt.Sprintf("parse error: %v", err))
	}
	return s.Handle(ctx, &req)
}

// Handle answers a decoded request
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if req.Method == "" {
		return Failure(req.ID, CodeInvalidRequest, "invalid request: method is required")
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		return Failure(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		code := CodeOperation
		if errors.Is(err, services.ErrInvalidParams) {
			code = CodeInvalidParams
		}
		logrus.WithFields(logrus.Fields{
			"method": req.Method,
			"code":   code,
		}).WithError(err).Warn("⚠️  RPC call failed")
		return Failure(req.ID, code, err.Error())
	}
	return Success(req.ID, result)
}

func (s *Server) notify(method models.NotificationMethod, params interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(NewNotification(string(method), params))
}

func (s *Server) notifyFiltersChanged() {
	s.notify(models.NotificationFiltersChanged, s.core.ListFilters())
}

func (s *Server) ping(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.core.Ping(), nil
}

func (s *Server) openVideo(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p openVideoParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return s.core.OpenVideo(ctx, p.VideoPath, p.VideoID)
}

func (s *Server) closeSession(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p sessionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", services.ErrInvalidParams)
	}
	return s.core.CloseSession(p.SessionID), nil
}

func (s *Server) playbackTick(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p playbackTickParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	samples, err := p.batch()
	if err != nil {
		return nil, err
	}
	return s.core.PlaybackTick(ctx, p.SessionID, samples)
}

func (s *Server) addNgUser(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	res, err := s.core.AddNgUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.notifyFiltersChanged()
	}
	return res, nil
}

func (s *Server) removeNgUser(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	res, err := s.core.RemoveNgUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if res.Removed {
		s.notifyFiltersChanged()
	}
	return res, nil
}

func (s *Server) undoLastNg(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p undoParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	res, err := s.core.UndoLastNg(ctx, p.UndoToken)
	if err != nil {
		return nil, err
	}
	if res.Restored {
		s.notifyFiltersChanged()
	}
	return res, nil
}

func (s *Server) addRegexFilter(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p addRegexFilterParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	res, err := s.core.AddRegexFilter(ctx, p.Pattern)
	if err != nil {
		return nil, err
	}
	s.notifyFiltersChanged()
	return res, nil
}

func (s *Server) removeRegexFilter(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p removeRegexFilterParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.FilterID == nil {
		return nil, fmt.Errorf("%w: filter_id is required", services.ErrInvalidParams)
	}
	res, err := s.core.RemoveRegexFilter(ctx, *p.FilterID)
	if err != nil {
		return nil, err
	}
	if res.Removed {
		s.notifyFiltersChanged()
	}
	return res, nil
}

func (s *Server) listFilters(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.core.ListFilters(), nil
}

func (s *Server) setRuntimeProfile(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p setRuntimeProfileParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.Profile == "" {
		return nil, fmt.Errorf("%w: profile is required", services.ErrInvalidParams)
	}
	cfg, err := s.core.SetRuntimeProfile(p.Profile, p.overrides())
	if err != nil {
		return nil, err
	}
	s.notify(models.NotificationProfileChanged, cfg)
	return cfg, nil
}

func (s *Server) getRuntimeProfile(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.core.RuntimeProfile(), nil
}
