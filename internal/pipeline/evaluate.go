package pipeline

import (
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/scoring"
)

// evaluator attaches stress and cognitive load results to a sample.
type evaluator struct {
	scorer scoring.Scorer
	load   *scoring.LoadEstimator
}

func (e evaluator) evaluate(sample models.Sample) models.Snapshot {
	sig := scoring.SignalsFromSample(sample)
	snap := models.Snapshot{
		Sample: sample,
		Stress: e.scorer.Compute(sig),
	}
	if load, ok := e.load.Estimate(sig); ok {
		snap.CognitiveLoad = &load
	}
	return snap
}
