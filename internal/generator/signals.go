package generator

import (
	"math"
	"math/rand"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
)

// scalarSignal holds the defaults and physical limits for a scalar signal.
type scalarSignal struct {
	baseline float64
	noise    float64
	min, max float64
}

var scalarSignals = map[string]scalarSignal{
	profile.SignalHR:    {baseline: 75, noise: 2.5, min: 40, max: 200},
	profile.SignalEDA:   {baseline: 2.5, noise: 0.2, min: 0, max: 20},
	profile.SignalHRV:   {baseline: 1.5, noise: 0.15, min: 0, max: 3.5},
	profile.SignalRR:    {baseline: 14, noise: 0.8, min: 6, max: 40},
	profile.SignalEye:   {baseline: 0.5, noise: 0.05, min: 0, max: 1},
	profile.SignalPupil: {baseline: 4.0, noise: 0.15, min: 1.5, max: 9},
}

var gravity = models.Vector3{Z: 9.81}

// generateScalar applies the config's baseline and modifiers, then Gaussian
// noise, and clamps to the signal's physical range. A nil config uses the
// signal defaults.
func generateScalar(rng *rand.Rand, spec scalarSignal, config *profile.SignalConfig) float64 {
	if config == nil {
		config = &profile.SignalConfig{}
	}

	value := getFloat(config.Baseline, spec.baseline)
	if config.Add != 0 {
		value += config.Add
	}
	if config.Multiply != 0 {
		value *= config.Multiply
	}

	noise := config.Noise
	if noise == 0 {
		noise = spec.noise
	}
	value += rng.NormFloat64() * noise

	return clamp(value, spec.min, spec.max)
}

// generateOptional is generateScalar for signals a source may not report.
// An unconfigured signal is never reported.
func generateOptional(rng *rand.Rand, spec scalarSignal, config *profile.SignalConfig) models.Reading {
	if config == nil {
		return models.Unavailable
	}
	if config.Dropout > 0 && rng.Float64() < config.Dropout {
		return models.Unavailable
	}
	return models.Available(generateScalar(rng, spec, config))
}

// generateMotion generates a 3-axis acceleration in m/s².
func generateMotion(rng *rand.Rand, config *profile.SignalConfig) models.Vector3 {
	if config == nil {
		return gravity
	}

	base := getVector3(config.Baseline, gravity)
	noise := config.Noise
	if noise == 0 {
		noise = 0.05
	}

	return models.Vector3{
		X: base.X + rng.NormFloat64()*noise,
		Y: base.Y + rng.NormFloat64()*noise,
		Z: base.Z + rng.NormFloat64()*noise,
	}
}

// Helper functions

func getFloat(val interface{}, defaultVal float64) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}

func getVector3(val interface{}, defaultVal models.Vector3) models.Vector3 {
	switch v := val.(type) {
	case []interface{}:
		if len(v) >= 3 {
			return models.Vector3{
				X: getFloat(v[0], defaultVal.X),
				Y: getFloat(v[1], defaultVal.Y),
				Z: getFloat(v[2], defaultVal.Z),
			}
		}
	case []float64:
		if len(v) >= 3 {
			return models.Vector3{X: v[0], Y: v[1], Z: v[2]}
		}
	}
	return defaultVal
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}
