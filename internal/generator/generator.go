// Package generator produces raw biometric samples from a profile.
package generator

import (
	"math/rand"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
)

// Generator is the raw sensor source. It is not safe for concurrent use.
type Generator struct {
	engine *profile.Engine
	rng    *rand.Rand
}

// New returns a generator over engine drawing from rng.
func New(engine *profile.Engine, rng *rand.Rand) *Generator {
	return &Generator{engine: engine, rng: rng}
}

// NewSeeded is New with a fresh source seeded by seed.
func NewSeeded(engine *profile.Engine, seed int64) *Generator {
	return New(engine, rand.New(rand.NewSource(seed)))
}

// Next produces the raw sample at now.
func (g *Generator) Next(now time.Time) models.RawSample {
	cfg := func(name string) *profile.SignalConfig {
		return g.engine.SignalConfig(name, now)
	}

	s := models.RawSample{
		Timestamp:       now,
		HeartRate:       generateScalar(g.rng, scalarSignals[profile.SignalHR], cfg(profile.SignalHR)),
		EDA:             generateScalar(g.rng, scalarSignals[profile.SignalEDA], cfg(profile.SignalEDA)),
		HRV:             generateScalar(g.rng, scalarSignals[profile.SignalHRV], cfg(profile.SignalHRV)),
		RespiratoryRate: generateScalar(g.rng, scalarSignals[profile.SignalRR], cfg(profile.SignalRR)),
		EyeMovement:     generateOptional(g.rng, scalarSignals[profile.SignalEye], cfg(profile.SignalEye)),
		PupilSize:       generateOptional(g.rng, scalarSignals[profile.SignalPupil], cfg(profile.SignalPupil)),
		Motion:          generateMotion(g.rng, cfg(profile.SignalMotion)),
	}

	applyCorrelations(&s)
	return s
}

// Profile returns the profile driving the generator.
func (g *Generator) Profile() *profile.Profile {
	return g.engine.Profile()
}

// Done reports whether a finite profile has run its course at now.
func (g *Generator) Done(now time.Time) bool {
	return g.engine.IsComplete(now)
}
