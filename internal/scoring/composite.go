package scoring

import (
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// Level thresholds on the percentage scale for the min-max scorer.
const (
	ThresholdHigh   = 75
	ThresholdMedium = 50
	ThresholdLow    = 25
)

// Ranges holds the min-max span per scored signal.
type Ranges struct {
	HeartRate       Range `yaml:"hr" toml:"hr" json:"hr"`
	EDA             Range `yaml:"eda" toml:"eda" json:"eda"`
	HRV             Range `yaml:"hrv" toml:"hrv" json:"hrv"`
	RespiratoryRate Range `yaml:"rr" toml:"rr" json:"rr"`
}

// DefaultRanges centres each span on the default baseline mean.
func DefaultRanges() Ranges {
	return Ranges{
		HeartRate:       Range{Min: 40, Max: 110},
		EDA:             Range{Min: 0, Max: 5},
		HRV:             Range{Min: 0, Max: 3},
		RespiratoryRate: Range{Min: 8, Max: 20},
	}
}

// Weights are the per-signal contributions to the composite score.
type Weights struct {
	HeartRate       float64 `yaml:"hr" toml:"hr" json:"hr"`
	EDA             float64 `yaml:"eda" toml:"eda" json:"eda"`
	HRV             float64 `yaml:"hrv" toml:"hrv" json:"hrv"`
	RespiratoryRate float64 `yaml:"rr" toml:"rr" json:"rr"`
}

// DefaultWeights returns the fixed composite weights.
func DefaultWeights() Weights {
	return Weights{
		HeartRate:       0.30,
		EDA:             0.30,
		HRV:             0.25,
		RespiratoryRate: 0.15,
	}
}

// MinMaxScorer is the weighted min-max composite stress scorer.
type MinMaxScorer struct {
	ranges  Ranges
	weights Weights
}

// NewMinMaxScorer returns a scorer over the given ranges and weights.
func NewMinMaxScorer(ranges Ranges, weights Weights) *MinMaxScorer {
	return &MinMaxScorer{ranges: ranges, weights: weights}
}

func (s *MinMaxScorer) Name() string { return ModeMinMax }

func (s *MinMaxScorer) Compute(sig Signals) models.StressResult {
	return Score(sig, s.ranges, s.weights)
}

// Score computes the weighted composite over the available signals only, so
// that a dropped sensor does not pull the score towards zero. HRV is inverted:
// lower variability means more stress.
func Score(sig Signals, ranges Ranges, weights Weights) models.StressResult {
	var weightedSum, totalWeight float64

	add := func(norm models.Reading, weight float64, invert bool) {
		v, ok := norm.Get()
		if !ok || weight <= 0 {
			return
		}
		if invert {
			v = 1 - v
		}
		weightedSum += weight * v
		totalWeight += weight
	}

	add(ranges.HeartRate.Normalize(sig.HeartRate), weights.HeartRate, false)
	add(ranges.EDA.Normalize(sig.EDA), weights.EDA, false)
	add(ranges.HRV.Normalize(sig.HRV), weights.HRV, true)
	add(ranges.RespiratoryRate.Normalize(sig.RespiratoryRate), weights.RespiratoryRate, false)

	if totalWeight == 0 {
		return unavailableResult(ModeMinMax)
	}

	raw := clamp01(weightedSum / totalWeight)
	pct := Percentage(raw)
	return models.StressResult{
		Scorer:     ModeMinMax,
		RawScore:   models.Available(raw),
		Percentage: pct,
		Level:      LevelForPercentage(pct),
	}
}

// Percentage converts a [0, 1] score to a whole percentage in [0, 100].
func Percentage(raw float64) int {
	pct := int(math.Round(raw * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LevelForPercentage maps a percentage onto rest/low/medium/high.
func LevelForPercentage(pct int) models.StressLevel {
	switch {
	case pct >= ThresholdHigh:
		return models.LevelHigh
	case pct >= ThresholdMedium:
		return models.LevelMedium
	case pct >= ThresholdLow:
		return models.LevelLow
	default:
		return models.LevelRest
	}
}

func unavailableResult(scorer string) models.StressResult {
	return models.StressResult{
		Scorer:     scorer,
		RawScore:   models.Unavailable,
		Percentage: 0,
		Level:      models.LevelCalculating,
	}
}
