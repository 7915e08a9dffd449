package scoring

import (
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// Z-score stress thresholds on the percentage scale.
const (
	ZThresholdHigh     = 70
	ZThresholdModerate = 40
)

// Weights of the four core signals in the z-score stress composite. HRV is
// negative: variability above baseline lowers stress.
const (
	zWeightEDA = 1.2
	zWeightHR  = 1.0
	zWeightHRV = -1.3
	zWeightRR  = 1.0
)

// ZScoreScorer scores stress from z-scores against population baselines
// rather than fixed ranges. Levels are low/moderate/high.
type ZScoreScorer struct {
	baselines Baselines
}

// NewZScoreScorer validates the baselines up front.
func NewZScoreScorer(b Baselines) (*ZScoreScorer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &ZScoreScorer{baselines: b}, nil
}

func (s *ZScoreScorer) Name() string { return ModeZScore }

// Compute averages the weighted z-scores of the available signals, dividing by
// the absolute weight in play, and squashes the result with a logistic so a
// sample at baseline scores 0.5.
func (s *ZScoreScorer) Compute(sig Signals) models.StressResult {
	var sum, absWeight float64

	add := func(r models.Reading, b Baseline, weight float64) {
		v, ok := r.Get()
		if !ok {
			return
		}
		sum += weight * b.Z(v)
		absWeight += math.Abs(weight)
	}

	add(sig.EDA, s.baselines.EDA, zWeightEDA)
	add(sig.HeartRate, s.baselines.HeartRate, zWeightHR)
	add(sig.HRV, s.baselines.HRV, zWeightHRV)
	add(sig.RespiratoryRate, s.baselines.RespiratoryRate, zWeightRR)

	if absWeight == 0 {
		return unavailableResult(ModeZScore)
	}

	raw := logistic(sum / absWeight)
	pct := Percentage(raw)
	return models.StressResult{
		Scorer:     ModeZScore,
		RawScore:   models.Available(raw),
		Percentage: pct,
		Level:      zLevel(pct),
	}
}

func zLevel(pct int) models.StressLevel {
	switch {
	case pct >= ZThresholdHigh:
		return models.LevelHigh
	case pct >= ZThresholdModerate:
		return models.LevelModerate
	default:
		return models.LevelLow
	}
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
