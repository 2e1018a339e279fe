package profile

import (
	"errors"
	"testing"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestSelectResetsToBaseline(t *testing.T) {
	m, err := NewManager(Balanced)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := m.Select(High, Overrides{TargetFPS: intPtr(90), MaxEmitPerTick: intPtr(10)}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	got, err := m.Select(LowSpec, Overrides{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := Config{Profile: LowSpec, TargetFPS: 30, MaxEmitPerTick: 120, CoalesceSameContent: true}
	if got != want || m.Active() != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSelectClampsOverrides(t *testing.T) {
	cases := []struct {
		name     string
		o        Overrides
		fps      int
		maxEmit  int
		coalesce bool
	}{
		{"fps below floor", Overrides{TargetFPS: intPtr(1)}, MinTargetFPS, 400, true},
		{"fps above ceiling", Overrides{TargetFPS: intPtr(500)}, MaxTargetFPS, 400, true},
		{"emit above ceiling", Overrides{MaxEmitPerTick: intPtr(99999)}, 60, MaxEmitPerTickCap, true},
		{"emit unbounded", Overrides{MaxEmitPerTick: intPtr(0)}, 60, 0, true},
		{"coalesce verbatim", Overrides{CoalesceSameContent: boolPtr(false)}, 60, 400, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := NewManager(High)
			got, err := m.Select(Balanced, tc.o)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got.TargetFPS != tc.fps || got.MaxEmitPerTick != tc.maxEmit || got.CoalesceSameContent != tc.coalesce {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestUnknownProfileLeavesConfigUntouched(t *testing.T) {
	m, _ := NewManager(LowSpec)
	if _, err := m.Select(LowSpec, Overrides{MaxEmitPerTick: intPtr(5)}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	before := m.Active()

	_, err := m.Select("ultra", Overrides{TargetFPS: intPtr(120)})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if m.Active() != before {
		t.Fatalf("active changed to %+v", m.Active())
	}
}

func TestNewManagerRejectsUnknownProfile(t *testing.T) {
	if _, err := NewManager("turbo"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestGovernorSettingsFollowProfile(t *testing.T) {
	m, _ := NewManager(High)
	s := m.Active().Governor()
	if s.MaxEmitPerTick != 0 || s.CoalesceSameContent {
		t.Fatalf("high should be unbounded without coalescing, got %+v", s)
	}
	if len(Names()) != 3 {
		t.Fatalf("expected three profiles, got %v", Names())
	}
}
