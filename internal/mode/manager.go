// Package mode implements the process-wide operating mode and its
// permission gates. Every privileged operation in the core (file write,
// command exec, git op) asks the manager before acting.
package mode

import (
	"fmt"
	"sync"

	"agcodex/internal/logging"
)

// Mode is one of the three operating modes.
type Mode string

const (
	ModePlan   Mode = "plan"
	ModeBuild  Mode = "build"
	ModeReview Mode = "review"
)

// Parse converts a config string into a Mode.
func Parse(s string) (Mode, error) {
	switch Mode(s) {
	case ModePlan, ModeBuild, ModeReview:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Label returns the display name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModePlan:
		return "Plan"
	case ModeBuild:
		return "Build"
	case ModeReview:
		return "Review"
	default:
		return string(m)
	}
}

// Observer is notified after a mode change. Observers must not block;
// the manager invokes each one on its own goroutine.
type Observer func(previous, current Mode)

// Visuals describes the mode indicator consumed by the external UI.
type Visuals struct {
	Glyph string
	Color string
	Label string
}

// Manager holds the current mode. Reads take a shared lock, mutations an
// exclusive one, so gate queries are linearizable with respect to Cycle
// and SwitchTo.
type Manager struct {
	mu        sync.RWMutex
	current   Mode
	history   []Mode
	observers []Observer

	cycleKey         string
	reviewWriteLimit int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCycleKey sets the key-binding named in gate denial hints.
func WithCycleKey(key string) Option {
	return func(m *Manager) { m.cycleKey = key }
}

// WithReviewWriteLimit sets the review-mode write size cap in bytes.
func WithReviewWriteLimit(limit int) Option {
	return func(m *Manager) { m.reviewWriteLimit = limit }
}

// NewManager creates a manager starting in the given mode.
func NewManager(initial Mode, opts ...Option) *Manager {
	m := &Manager{
		current:          initial,
		cycleKey:         "Shift+Tab",
		reviewWriteLimit: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the current mode.
func (m *Manager) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Cycle advances Build -> Review -> Plan -> Build and returns the new mode.
func (m *Manager) Cycle() Mode {
	var next Mode
	m.mu.Lock()
	switch m.current {
	case ModeBuild:
		next = ModeReview
	case ModeReview:
		next = ModePlan
	default:
		next = ModeBuild
	}
	prev := m.current
	m.history = append(m.history, prev)
	m.current = next
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	logging.Mode("cycled %s -> %s", prev, next)
	notify(observers, prev, next)
	return next
}

// SwitchTo sets an explicit target mode.
func (m *Manager) SwitchTo(target Mode) {
	m.mu.Lock()
	if m.current == target {
		m.mu.Unlock()
		return
	}
	prev := m.current
	m.history = append(m.history, prev)
	m.current = target
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	logging.Mode("switched %s -> %s", prev, target)
	notify(observers, prev, target)
}

// History returns the modes prior to the current one, oldest first.
func (m *Manager) History() []Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Mode(nil), m.history...)
}

// OnChange registers an observer for mode changes.
func (m *Manager) OnChange(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// CycleKey returns the configured cycle key-binding.
func (m *Manager) CycleKey() string {
	return m.cycleKey
}

// ReviewWriteLimit returns the review-mode write size cap in bytes.
func (m *Manager) ReviewWriteLimit() int {
	return m.reviewWriteLimit
}

// Visuals returns the indicator for the current mode.
func (m *Manager) Visuals() Visuals {
	switch m.Current() {
	case ModePlan:
		return Visuals{Glyph: "◇", Color: "blue", Label: "Plan"}
	case ModeBuild:
		return Visuals{Glyph: "◆", Color: "green", Label: "Build"}
	default:
		return Visuals{Glyph: "◈", Color: "yellow", Label: "Review"}
	}
}

func notify(observers []Observer, prev, next Mode) {
	for _, obs := range observers {
		go obs(prev, next)
	}
}
