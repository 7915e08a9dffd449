package scoring

import (
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// Cognitive load weights per signal.
const (
	loadWeightEDA   = 1.2
	loadWeightHR    = 1.0
	loadWeightHRV   = -1.3
	loadWeightRR    = 1.0
	loadWeightEye   = -1.0
	loadWeightPupil = 1.4
)

// Cognitive load level boundaries on the index.
const (
	LoadThresholdModerate = 0
	LoadThresholdHigh     = 1.5
	LoadThresholdVeryHigh = 2.5
)

// LoadEstimator computes the z-score cognitive load index. It has no
// partial-availability fallback: all six signals and baselines are required.
type LoadEstimator struct {
	baselines Baselines
}

// NewLoadEstimator fails with a MissingBaselineError if any baseline is absent.
func NewLoadEstimator(b Baselines) (*LoadEstimator, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &LoadEstimator{baselines: b}, nil
}

// Estimate returns the load index and level. ok is false when any of the six
// signals is unavailable.
func (e *LoadEstimator) Estimate(sig Signals) (models.CognitiveLoadResult, bool) {
	terms := []struct {
		r      models.Reading
		b      Baseline
		weight float64
	}{
		{sig.EDA, e.baselines.EDA, loadWeightEDA},
		{sig.HeartRate, e.baselines.HeartRate, loadWeightHR},
		{sig.HRV, e.baselines.HRV, loadWeightHRV},
		{sig.RespiratoryRate, e.baselines.RespiratoryRate, loadWeightRR},
		{sig.EyeMovement, e.baselines.EyeMovement, loadWeightEye},
		{sig.PupilSize, e.baselines.PupilSize, loadWeightPupil},
	}

	var index float64
	for _, t := range terms {
		v, ok := t.r.Get()
		if !ok {
			return models.CognitiveLoadResult{}, false
		}
		index += t.weight * t.b.Z(v)
	}

	return models.CognitiveLoadResult{
		Index: math.Round(index*100) / 100,
		Level: ClassifyLoad(index),
	}, true
}

// ClassifyLoad maps a load index onto low/moderate/high/very high.
func ClassifyLoad(index float64) models.LoadLevel {
	switch {
	case index < LoadThresholdModerate:
		return models.LoadLow
	case index < LoadThresholdHigh:
		return models.LoadModerate
	case index < LoadThresholdVeryHigh:
		return models.LoadHigh
	default:
		return models.LoadVeryHigh
	}
}
