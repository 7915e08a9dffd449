package profile

import (
	"fmt"
	"time"
)

// DefaultName is the profile served by the shared windowed pipeline.
const DefaultName = "default"

// Signal names a profile may configure.
const (
	SignalHR     = "hr"
	SignalEDA    = "eda"
	SignalHRV    = "hrv"
	SignalRR     = "rr"
	SignalEye    = "eye"
	SignalPupil  = "pupil"
	SignalMotion = "motion"
)

// KnownSignals lists every signal a profile may configure.
var KnownSignals = []string{SignalHR, SignalEDA, SignalHRV, SignalRR, SignalEye, SignalPupil, SignalMotion}

// Profile describes a simulated subject: per-signal baselines plus optional
// time-bounded phases that override them.
type Profile struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Duration    string                   `yaml:"duration"` // e.g. "10m", "unlimited"
	Signals     map[string]*SignalConfig `yaml:"signals"`
	Phases      []Phase                  `yaml:"phases"`
}

// Phase is a time-bounded stage of a profile.
type Phase struct {
	Name      string                   `yaml:"name"`
	Duration  string                   `yaml:"duration"`
	Overrides map[string]*SignalConfig `yaml:"overrides,omitempty"`
}

// SignalConfig configures one raw signal.
type SignalConfig struct {
	Baseline interface{} `yaml:"baseline,omitempty"` // number, or [x, y, z] for motion
	Noise    float64     `yaml:"noise,omitempty"`
	Unit     string      `yaml:"unit,omitempty"`

	// Modifiers, usually set by phase overrides.
	Add      float64 `yaml:"add,omitempty"`
	Multiply float64 `yaml:"multiply,omitempty"`

	// Dropout is the probability that an optional signal is missing on a
	// given sample.
	Dropout float64 `yaml:"dropout,omitempty"`
}

// ParseDuration parses duration strings like "8m", "30s", "unlimited".
func ParseDuration(s string) (time.Duration, bool) {
	if s == "unlimited" || s == "" {
		return 0, true
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, false
}

// Validate checks signal names and durations.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if err := validateDuration(p.Duration); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	for name := range p.Signals {
		if !isKnown(name) {
			return fmt.Errorf("profile %s: unknown signal %q", p.Name, name)
		}
	}
	for _, ph := range p.Phases {
		if err := validateDuration(ph.Duration); err != nil {
			return fmt.Errorf("profile %s phase %s: %w", p.Name, ph.Name, err)
		}
		for name := range ph.Overrides {
			if _, ok := p.Signals[name]; !ok {
				return fmt.Errorf("profile %s phase %s: override for unconfigured signal %q", p.Name, ph.Name, name)
			}
		}
	}
	return nil
}

func validateDuration(s string) error {
	if s == "" || s == "unlimited" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return fmt.Errorf("duration %q must be positive", s)
	}
	return nil
}

func isKnown(name string) bool {
	for _, k := range KnownSignals {
		if k == name {
			return true
		}
	}
	return false
}

// EffectiveConfig returns the signal config at elapsed, with the current
// phase's overrides merged over the base config. It returns nil for signals
// the profile does not configure.
func (p *Profile) EffectiveConfig(signal string, elapsed time.Duration) *SignalConfig {
	base := p.Signals[signal]
	if base == nil {
		return nil
	}

	phase := p.phaseAt(elapsed)
	if phase == nil {
		return base
	}

	override, ok := phase.Overrides[signal]
	if !ok {
		return base
	}

	merged := *base
	if override.Add != 0 {
		merged.Add = override.Add
	}
	if override.Multiply != 0 {
		merged.Multiply = override.Multiply
	}
	if override.Baseline != nil {
		merged.Baseline = override.Baseline
	}
	if override.Noise != 0 {
		merged.Noise = override.Noise
	}
	if override.Dropout != 0 {
		merged.Dropout = override.Dropout
	}
	return &merged
}

func (p *Profile) phaseAt(elapsed time.Duration) *Phase {
	if len(p.Phases) == 0 {
		return nil
	}

	var offset time.Duration
	for i := range p.Phases {
		d, unlimited := ParseDuration(p.Phases[i].Duration)
		if unlimited || elapsed < offset+d {
			return &p.Phases[i]
		}
		offset += d
	}

	// Past the end, hold the last phase.
	return &p.Phases[len(p.Phases)-1]
}
