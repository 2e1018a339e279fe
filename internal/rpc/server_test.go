package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sh4869221b/niconeon/internal/models"
	"github.com/sh4869221b/niconeon/internal/services"
	"github.com/sh4869221b/niconeon/internal/services/filter"
	"github.com/sh4869221b/niconeon/internal/services/playback"
	"github.com/sh4869221b/niconeon/internal/services/profile"
)

// fakeCore records what the server passed through
type fakeCore struct {
	samples   []playback.Sample
	overrides profile.Overrides
	openErr   error
	ngApplied bool
}

func (f *fakeCore) Ping() services.PingResult { return services.PingResult{OK: true} }

func (f *fakeCore) OpenVideo(ctx context.Context, videoPath, videoID string) (*services.OpenVideoResult, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &services.OpenVideoResult{SessionID: "s1", VideoID: videoID, CommentSource: models.CommentSourceNone}, nil
}

func (f *fakeCore) CloseSession(sessionID string) services.CloseSessionResult {
	return services.CloseSessionResult{Closed: sessionID == "s1"}
}

func (f *fakeCore) PlaybackTick(ctx context.Context, sessionID string, samples []playback.Sample) (*services.PlaybackTickResult, error) {
	if sessionID != "s1" {
		return nil, fmt.Errorf("%w: %s", playback.ErrSessionNotFound, sessionID)
	}
	f.samples = samples
	return &services.PlaybackTickResult{EmitComments: []models.CommentEvent{}, SamplesProcessed: len(samples)}, nil
}

func (f *fakeCore) AddNgUser(ctx context.Context, userID string) (*services.AddNgUserResult, error) {
	return &services.AddNgUserResult{Applied: f.ngApplied, HiddenUserID: userID}, nil
}

func (f *fakeCore) RemoveNgUser(ctx context.Context, userID string) (*services.RemoveNgUserResult, error) {
	return &services.RemoveNgUserResult{Removed: true, UserID: userID}, nil
}

func (f *fakeCore) UndoLastNg(ctx context.Context, token string) (*services.UndoLastNgResult, error) {
	return &services.UndoLastNgResult{Restored: false}, nil
}

func (f *fakeCore) AddRegexFilter(ctx context.Context, pattern string) (*services.AddRegexFilterResult, error) {
	if _, err := filter.Compile(pattern); err != nil {
		return nil, err
	}
	return &services.AddRegexFilterResult{FilterID: 1}, nil
}

func (f *fakeCore) RemoveRegexFilter(ctx context.Context, filterID int64) (*services.RemoveRegexFilterResult, error) {
	return &services.RemoveRegexFilterResult{Removed: filterID == 1}, nil
}

func (f *fakeCore) ListFilters() services.ListFiltersResult {
	return services.ListFiltersResult{NgUsers: []string{"u1"}, RegexFilters: []models.RegexFilter{}}
}

func (f *fakeCore) SetRuntimeProfile(name string, o profile.Overrides) (profile.Config, error) {
	f.overrides = o
	return profile.Baseline(name)
}

func (f *fakeCore) RuntimeProfile() profile.Config {
	cfg, _ := profile.Baseline(profile.Balanced)
	return cfg
}

// recorder collects notifications
type recorder struct {
	got []*Notification
}

func (r *recorder) Notify(n *Notification) { r.got = append(r.got, n) }

func call(t *testing.T, s *Server, line string) *Response {
	t.Helper()
	return s.HandleMessage(context.Background(), []byte(line))
}

func TestHandleErrorCodes(t *testing.T) {
	core := &fakeCore{}
	s := NewServer(core, nil)

	tests := []struct {
		name string
		line string
		code int
	}{
		{"parse error", `{"jsonrpc":`, CodeParseError},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"reboot"}`, CodeMethodNotFound},
		{"wrong param type", `{"jsonrpc":"2.0","id":1,"method":"add_ng_user","params":{"user_id":5}}`, CodeInvalidParams},
		{"missing tick position", `{"jsonrpc":"2.0","id":1,"method":"playback_tick","params":{"session_id":"s1"}}`, CodeInvalidParams},
		{"negative position", `{"jsonrpc":"2.0","id":1,"method":"playback_tick","params":{"session_id":"s1","position_ms":-5}}`, CodeInvalidParams},
		{"missing filter id", `{"jsonrpc":"2.0","id":1,"method":"remove_regex_filter","params":{}}`, CodeInvalidParams},
		{"bad coalesce flag", `{"jsonrpc":"2.0","id":1,"method":"set_runtime_profile","params":{"profile":"high","coalesce_same_content":7}}`, CodeInvalidParams},
		{"unknown session", `{"jsonrpc":"2.0","id":1,"method":"playback_tick","params":{"session_id":"nope","samples":[]}}`, CodeOperation},
		{"invalid pattern", `{"jsonrpc":"2.0","id":1,"method":"add_regex_filter","params":{"pattern":"(["}}`, CodeOperation},
		{"unknown profile", `{"jsonrpc":"2.0","id":1,"method":"set_runtime_profile","params":{"profile":"turbo"}}`, CodeOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, tt.line)
			if resp.Error == nil {
				t.Fatalf("expected error code %d, got result %+v", tt.code, resp.Result)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, tt.code)
			}
		})
	}
}

func TestResponseEchoesID(t *testing.T) {
	s := NewServer(&fakeCore{}, nil)

	resp := call(t, s, `{"jsonrpc":"2.0","id":"abc-1","method":"ping"}`)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"jsonrpc":"2.0","id":"abc-1","result":{"ok":true}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	parseFail, _ := json.Marshal(call(t, s, `not json`))
	if !strings.Contains(string(parseFail), `"id":null`) {
		t.Errorf("parse error must carry a null id: %s", parseFail)
	}
}

func TestPlaybackTickShapes(t *testing.T) {
	core := &fakeCore{}
	s := NewServer(core, nil)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"playback_tick",
		"params":{"session_id":"s1","position_ms":1500,"paused":true}}`)
	if resp.Error != nil {
		t.Fatalf("legacy tick failed: %+v", resp.Error)
	}
	if len(core.samples) != 1 || core.samples[0].PositionMs != 1500 || !core.samples[0].Paused {
		t.Fatalf("legacy sample not converted: %+v", core.samples)
	}

	resp = call(t, s, `{"jsonrpc":"2.0","id":2,"method":"playback_tick",
		"params":{"session_id":"s1","samples":[{"position_ms":10},{"position_ms":5,"is_seek":true}]}}`)
	if resp.Error != nil {
		t.Fatalf("batched tick failed: %+v", resp.Error)
	}
	if len(core.samples) != 2 || !core.samples[1].IsSeek {
		t.Fatalf("batch not passed through: %+v", core.samples)
	}

	resp = call(t, s, `{"jsonrpc":"2.0","id":3,"method":"playback_tick","params":{"session_id":"s1","samples":[]}}`)
	if resp.Error != nil || len(core.samples) != 0 {
		t.Fatalf("empty batch should be valid: %+v", resp.Error)
	}
}

func TestSetRuntimeProfileOverrides(t *testing.T) {
	tests := []struct {
		name       string
		params     string
		wantFPS    *int
		wantEmit   *int
		wantMerged *bool
	}{
		{"absent", `{"profile":"high"}`, nil, nil, nil},
		{"sentinels", `{"profile":"high","target_fps":-1,"max_emit_per_tick":-1,"coalesce_same_content":-1}`, nil, nil, nil},
		{"numbers", `{"profile":"high","target_fps":90,"max_emit_per_tick":0,"coalesce_same_content":1}`, intPtr(90), intPtr(0), boolPtr(true)},
		{"bool flag", `{"profile":"high","coalesce_same_content":false}`, nil, nil, boolPtr(false)},
		{"zero flag", `{"profile":"high","coalesce_same_content":0}`, nil, nil, boolPtr(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := &fakeCore{}
			s := NewServer(core, nil)
			resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"set_runtime_profile","params":`+tt.params+`}`)
			if resp.Error != nil {
				t.Fatalf("unexpected error %+v", resp.Error)
			}
			o := core.overrides
			if !equalInt(o.TargetFPS, tt.wantFPS) || !equalInt(o.MaxEmitPerTick, tt.wantEmit) || !equalBool(o.CoalesceSameContent, tt.wantMerged) {
				t.Errorf("overrides = %+v", o)
			}
		})
	}
}

func TestFilterMutationsNotify(t *testing.T) {
	core := &fakeCore{ngApplied: true}
	rec := &recorder{}
	s := NewServer(core, rec)

	call(t, s, `{"jsonrpc":"2.0","id":1,"method":"add_ng_user","params":{"user_id":"u1"}}`)
	call(t, s, `{"jsonrpc":"2.0","id":2,"method":"add_regex_filter","params":{"pattern":"x"}}`)
	call(t, s, `{"jsonrpc":"2.0","id":3,"method":"undo_last_ng","params":{"undo_token":"stale"}}`)
	call(t, s, `{"jsonrpc":"2.0","id":4,"method":"add_regex_filter","params":{"pattern":"(["}}`)
	call(t, s, `{"jsonrpc":"2.0","id":5,"method":"set_runtime_profile","params":{"profile":"low-spec"}}`)

	if len(rec.got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(rec.got))
	}
	for _, n := range rec.got[:2] {
		if n.Method != string(models.NotificationFiltersChanged) {
			t.Errorf("unexpected notification %s", n.Method)
		}
	}
	if rec.got[2].Method != string(models.NotificationProfileChanged) {
		t.Errorf("expected profile_changed, got %s", rec.got[2].Method)
	}
}

func TestOperationErrorMessage(t *testing.T) {
	s := NewServer(&fakeCore{openErr: errors.New("db down")}, nil)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"open_video","params":{"video_id":"sm9"}}`)
	if resp.Error == nil || resp.Error.Code != CodeOperation || resp.Error.Message != "db down" {
		t.Fatalf("unexpected response %+v", resp.Error)
	}

	s = NewServer(&fakeCore{openErr: fmt.Errorf("%w: video_id or video_path is required", services.ErrInvalidParams)}, nil)
	resp = call(t, s, `{"jsonrpc":"2.0","id":1,"method":"open_video"}`)
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("core invalid params should map to -32602: %+v", resp.Error)
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
