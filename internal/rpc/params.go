package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sh4869221b/niconeon/internal/services"
	"github.com/sh4869221b/niconeon/internal/services/playback"
	"github.com/sh4869221b/niconeon/internal/services/profile"
)

// notProvided is the desktop client's sentinel for an omitted numeric override
const notProvided = -1

type openVideoParams struct {
	VideoPath string `json:"video_path"`
	VideoID   string `json:"video_id"`
}

type sessionParams struct {
	SessionID string `json:"session_id"`
}

// playbackTickParams accepts a samples array or the legacy single-sample shape
type playbackTickParams struct {
	SessionID string            `json:"session_id"`
	Samples   []playback.Sample `json:"samples"`

	PositionMs *int64 `json:"position_ms"`
	Paused     bool   `json:"paused"`
	IsSeek     bool   `json:"is_seek"`
}

func (p *playbackTickParams) batch() ([]playback.Sample, error) {
	if p.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", services.ErrInvalidParams)
	}

	samples := p.Samples
	if samples == nil {
		if p.PositionMs == nil {
			return nil, fmt.Errorf("%w: samples or position_ms is required", services.ErrInvalidParams)
		}
		samples = []playback.Sample{{PositionMs: *p.PositionMs, Paused: p.Paused, IsSeek: p.IsSeek}}
	}

	for i, s := range samples {
		if s.PositionMs < 0 {
			return nil, fmt.Errorf("%w: samples[%d].position_ms must not be negative", services.ErrInvalidParams, i)
		}
	}
	return samples, nil
}

type userParams struct {
	UserID string `json:"user_id"`
}

type undoParams struct {
	UndoToken string `json:"undo_token"`
}

type addRegexFilterParams struct {
	Pattern string `json:"pattern"`
}

type removeRegexFilterParams struct {
	FilterID *int64 `json:"filter_id"`
}

type setRuntimeProfileParams struct {
	Profile             string       `json:"profile"`
	TargetFPS           optionalInt  `json:"target_fps"`
	MaxEmitPerTick      optionalInt  `json:"max_emit_per_tick"`
	CoalesceSameContent optionalBool `json:"coalesce_same_content"`
}

func (p *setRuntimeProfileParams) overrides() profile.Overrides {
	return profile.Overrides{
		TargetFPS:           p.TargetFPS.value,
		MaxEmitPerTick:      p.MaxEmitPerTick.value,
		CoalesceSameContent: p.CoalesceSameContent.value,
	}
}

// optionalInt treats null and -1 as "not provided"
type optionalInt struct {
	value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		o.value = nil
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n == notProvided {
		o.value = nil
		return nil
	}
	o.value = &n
	return nil
}

// optionalBool accepts true/false, 1/0, and treats null and -1 as "not provided"
type optionalBool struct {
	value *bool
}

func (o *optionalBool) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		o.value = nil
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		o.value = &b
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("coalesce flag must be a bool or 1/0/-1: %s", data)
	}
	switch n {
	case notProvided:
		o.value = nil
	case 0, 1:
		b = n == 1
		o.value = &b
	default:
		return fmt.Errorf("coalesce flag must be a bool or 1/0/-1, got %d", n)
	}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// decodeParams unmarshals params into v. Absent params decode as an empty object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || isNull(raw) {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidParams, err)
	}
	return nil
}
