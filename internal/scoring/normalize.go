package scoring

import (
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// Range is the physiological span a signal is normalised against.
type Range struct {
	Min float64 `yaml:"min" toml:"min" json:"min"`
	Max float64 `yaml:"max" toml:"max" json:"max"`
}

// Normalize maps v onto [0, 1] within [min, max]. Out-of-range values are
// clamped. Missing values and degenerate ranges yield Unavailable.
func Normalize(v models.Reading, min, max float64) models.Reading {
	value, ok := v.Get()
	if !ok {
		return models.Unavailable
	}
	if !(max > min) || math.IsInf(max-min, 0) {
		return models.Unavailable
	}
	return models.Available(clamp01((value - min) / (max - min)))
}

// Normalize is shorthand for Normalize(v, r.Min, r.Max).
func (r Range) Normalize(v models.Reading) models.Reading {
	return Normalize(v, r.Min, r.Max)
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
