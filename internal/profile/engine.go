package profile

import (
	"sync"
	"time"
)

// Engine tracks progress through a profile's phases. Time is passed in by
// the caller so a simulated clock can drive it.
type Engine struct {
	profile *Profile

	mu    sync.RWMutex
	start time.Time
}

// NewEngine starts the profile at start.
func NewEngine(p *Profile, start time.Time) *Engine {
	return &Engine{profile: p, start: start}
}

// Elapsed returns the time since the profile started.
func (e *Engine) Elapsed(now time.Time) time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if now.Before(e.start) {
		return 0
	}
	return now.Sub(e.start)
}

// CurrentPhase returns the active phase, or nil for a profile without phases.
func (e *Engine) CurrentPhase(now time.Time) *Phase {
	return e.profile.phaseAt(e.Elapsed(now))
}

// SignalConfig returns the effective config for signal at now.
func (e *Engine) SignalConfig(signal string, now time.Time) *SignalConfig {
	return e.profile.EffectiveConfig(signal, e.Elapsed(now))
}

// IsComplete reports whether a finite profile has run its course.
func (e *Engine) IsComplete(now time.Time) bool {
	d, unlimited := ParseDuration(e.profile.Duration)
	if unlimited {
		return false
	}
	return e.Elapsed(now) >= d
}

// Profile returns the underlying profile.
func (e *Engine) Profile() *Profile {
	return e.profile
}

// Reset restarts the profile at start.
func (e *Engine) Reset(start time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.start = start
}
