package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sh4869221b/niconeon/internal/services/governor"
)

// ErrUnknownProfile is returned for a profile name with no baseline
var ErrUnknownProfile = errors.New("unknown runtime profile")

const (
	High     = "high"
	Balanced = "balanced"
	LowSpec  = "low-spec"

	MinTargetFPS      = 10
	MaxTargetFPS      = 120
	MaxEmitPerTickCap = 2000
)

// Config is the active runtime profile
type Config struct {
	Profile             string `json:"profile"`
	TargetFPS           int    `json:"target_fps"`
	MaxEmitPerTick      int    `json:"max_emit_per_tick"`
	CoalesceSameContent bool   `json:"coalesce_same_content"`
}

// Governor returns the part of the profile the emission governor reads
func (c Config) Governor() governor.Settings {
	return governor.Settings{
		MaxEmitPerTick:      c.MaxEmitPerTick,
		CoalesceSameContent: c.CoalesceSameContent,
	}
}

// Overrides replace baseline fields. A nil field keeps the baseline.
type Overrides struct {
	TargetFPS           *int
	MaxEmitPerTick      *int
	CoalesceSameContent *bool
}

var baselines = map[string]Config{
	High:     {Profile: High, TargetFPS: 60, MaxEmitPerTick: 0, CoalesceSameContent: false},
	Balanced: {Profile: Balanced, TargetFPS: 60, MaxEmitPerTick: 400, CoalesceSameContent: true},
	LowSpec:  {Profile: LowSpec, TargetFPS: 30, MaxEmitPerTick: 120, CoalesceSameContent: true},
}

// Names lists the known profiles
func Names() []string {
	names := make([]string, 0, len(baselines))
	for name := range baselines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Baseline returns the defaults of a named profile
func Baseline(name string) (Config, error) {
	cfg, ok := baselines[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return cfg, nil
}

// Manager holds the one active profile shared by every session.
// Not safe for concurrent use; AppCore serializes access.
type Manager struct {
	active Config
}

// NewManager starts from the baseline of the named profile
func NewManager(initial string) (*Manager, error) {
	cfg, err := Baseline(initial)
	if err != nil {
		return nil, err
	}
	return &Manager{active: cfg}, nil
}

// Active returns a copy of the active profile
func (m *Manager) Active() Config {
	return m.active
}

// Select resets to the named baseline and applies the overrides.
// The active profile is replaced in one assignment, and only on success.
func (m *Manager) Select(name string, o Overrides) (Config, error) {
	cfg, err := Baseline(name)
	if err != nil {
		return m.active, err
	}

	if o.TargetFPS != nil {
		cfg.TargetFPS = clamp(*o.TargetFPS, MinTargetFPS, MaxTargetFPS)
	}
	if o.MaxEmitPerTick != nil {
		cfg.MaxEmitPerTick = clamp(*o.MaxEmitPerTick, 0, MaxEmitPerTickCap)
	}
	if o.CoalesceSameContent != nil {
		cfg.CoalesceSameContent = *o.CoalesceSameContent
	}

	m.active = cfg
	return cfg, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
