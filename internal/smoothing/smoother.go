// Package smoothing bounds how far each biometric field may move per tick.
package smoothing

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/synheart/synheart-stress/internal/models"
)

// Smoothing modes.
const (
	// ModeTrack moves towards the raw reading by at most MaxDelta.
	ModeTrack = "track"
	// ModeWalk ignores the raw value and takes a uniform random step in
	// [-MaxDelta, +MaxDelta].
	ModeWalk = "walk"
)

// Field bounds one smoothed signal.
type Field struct {
	Baseline float64 `yaml:"baseline" toml:"baseline" json:"baseline"`
	Jitter   float64 `yaml:"jitter" toml:"jitter" json:"jitter"`
	MaxDelta float64 `yaml:"max_delta" toml:"max_delta" json:"max_delta"`
	Min      float64 `yaml:"min" toml:"min" json:"min"`
	Max      float64 `yaml:"max" toml:"max" json:"max"`
}

func (f Field) clamp(v float64) float64 {
	return math.Max(f.Min, math.Min(f.Max, v))
}

func (f Field) validate(name string) error {
	if !(f.Max > f.Min) {
		return fmt.Errorf("smoothing.%s: max must exceed min", name)
	}
	if f.MaxDelta < 0 || f.Jitter < 0 {
		return fmt.Errorf("smoothing.%s: max_delta and jitter must not be negative", name)
	}
	return nil
}

// Config holds per-field bounds and the smoothing mode.
type Config struct {
	Mode            string `yaml:"mode" toml:"mode" json:"mode"`
	HeartRate       Field  `yaml:"hr" toml:"hr" json:"hr"`
	EDA             Field  `yaml:"eda" toml:"eda" json:"eda"`
	RespiratoryRate Field  `yaml:"rr" toml:"rr" json:"rr"`
	EyeMovement     Field  `yaml:"eye" toml:"eye" json:"eye"`
	PupilSize       Field  `yaml:"pupil" toml:"pupil" json:"pupil"`
}

// DefaultConfig returns the built-in physiological clamps and deltas.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeTrack,
		HeartRate:       Field{Baseline: 75, Jitter: 2, MaxDelta: 3, Min: 40, Max: 180},
		EDA:             Field{Baseline: 2.5, Jitter: 0.2, MaxDelta: 0.3, Min: 0, Max: 10},
		RespiratoryRate: Field{Baseline: 14, Jitter: 1, MaxDelta: 1, Min: 8, Max: 30},
		EyeMovement:     Field{Baseline: 0.5, Jitter: 0.05, MaxDelta: 0.05, Min: 0, Max: 1},
		PupilSize:       Field{Baseline: 4.0, Jitter: 0.2, MaxDelta: 0.2, Min: 2, Max: 8},
	}
}

// Validate checks the mode and every field.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeTrack, ModeWalk:
	default:
		return fmt.Errorf("smoothing.mode: unknown mode %q", c.Mode)
	}
	fields := []struct {
		name string
		f    Field
	}{
		{"hr", c.HeartRate},
		{"eda", c.EDA},
		{"rr", c.RespiratoryRate},
		{"eye", c.EyeMovement},
		{"pupil", c.PupilSize},
	}
	for _, f := range fields {
		if err := f.f.validate(f.name); err != nil {
			return err
		}
	}
	return nil
}

// Smoother produces temporally coherent samples. It is not safe for
// concurrent use; the pipeline calls it from the tick only.
type Smoother struct {
	cfg Config
	rng *rand.Rand
}

// New returns a Smoother drawing randomness from rng.
func New(cfg Config, rng *rand.Rand) *Smoother {
	return &Smoother{cfg: cfg, rng: rng}
}

// Smooth derives the next sample from prev and raw. When prev is nil the
// fields are seeded at baseline plus jitter, ignoring MaxDelta. HRV is left
// unavailable for the caller to fill in.
func (s *Smoother) Smooth(prev *models.Sample, raw models.RawSample) models.Sample {
	out := models.Sample{
		Timestamp: raw.Timestamp,
		HRV:       models.Unavailable,
		Motion:    raw.Motion,
	}

	if prev == nil {
		out.HeartRate = s.seed(s.cfg.HeartRate)
		out.EDA = s.seed(s.cfg.EDA)
		out.RespiratoryRate = s.seed(s.cfg.RespiratoryRate)
		out.EyeMovement = s.seedOptional(s.cfg.EyeMovement, raw.EyeMovement)
		out.PupilSize = s.seedOptional(s.cfg.PupilSize, raw.PupilSize)
		return out
	}

	out.HeartRate = s.step(s.cfg.HeartRate, prev.HeartRate, raw.HeartRate)
	out.EDA = s.step(s.cfg.EDA, prev.EDA, raw.EDA)
	out.RespiratoryRate = s.step(s.cfg.RespiratoryRate, prev.RespiratoryRate, raw.RespiratoryRate)
	out.EyeMovement = s.stepOptional(s.cfg.EyeMovement, prev.EyeMovement, raw.EyeMovement)
	out.PupilSize = s.stepOptional(s.cfg.PupilSize, prev.PupilSize, raw.PupilSize)
	return out
}

func (s *Smoother) seed(f Field) float64 {
	return f.clamp(f.Baseline + s.uniform(f.Jitter))
}

func (s *Smoother) step(f Field, prev, raw float64) float64 {
	var delta float64
	switch s.cfg.Mode {
	case ModeWalk:
		delta = s.uniform(f.MaxDelta)
	default:
		if !math.IsNaN(raw) {
			delta = math.Max(-f.MaxDelta, math.Min(f.MaxDelta, raw-prev))
		}
	}
	return f.clamp(prev + delta)
}

// Optional signals drop out when the source stops reporting them and are
// reseeded when they come back.
func (s *Smoother) seedOptional(f Field, raw models.Reading) models.Reading {
	if !raw.Valid {
		return models.Unavailable
	}
	return models.Available(s.seed(f))
}

func (s *Smoother) stepOptional(f Field, prev, raw models.Reading) models.Reading {
	r, ok := raw.Get()
	if !ok {
		return models.Unavailable
	}
	p, ok := prev.Get()
	if !ok {
		return models.Available(s.seed(f))
	}
	return models.Available(s.step(f, p, r))
}

// uniform returns a value in [-span, +span].
func (s *Smoother) uniform(span float64) float64 {
	if span == 0 {
		return 0
	}
	return (s.rng.Float64()*2 - 1) * span
}
