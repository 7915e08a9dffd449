package scoring

import "github.com/synheart/synheart-stress/internal/models"

// Indicator thresholds. SkinResponse is EDA on a 0-100 scale over the
// configured EDA range; Motion is acceleration magnitude in m/s².
const (
	IndicatorHeartRate    = 90
	IndicatorSkinResponse = 70
	IndicatorMotion       = 12
)

// IndicatorScorer counts how many arousal indicators are raised: elevated
// heart rate, elevated skin response and vigorous motion. Two or more is
// high, one is moderate, none is low.
type IndicatorScorer struct {
	eda Range
}

// NewIndicatorScorer scales skin response over the given EDA range.
func NewIndicatorScorer(eda Range) *IndicatorScorer {
	return &IndicatorScorer{eda: eda}
}

func (s *IndicatorScorer) Name() string { return ModeIndicator }

// Compute scores the fraction of available indicators that are raised. An
// indicator whose input is unavailable is neither raised nor counted; with
// none available the result is unavailable.
func (s *IndicatorScorer) Compute(sig Signals) models.StressResult {
	var raised, checked int

	if hr, ok := sig.HeartRate.Get(); ok {
		checked++
		if hr > IndicatorHeartRate {
			raised++
		}
	}
	if skin, ok := s.eda.Normalize(sig.EDA).Get(); ok {
		checked++
		if skin*100 > IndicatorSkinResponse {
			raised++
		}
	}
	// A zero vector means no accelerometer; a worn one always reads gravity.
	if sig.Motion != (models.Vector3{}) {
		checked++
		if sig.Motion.Magnitude() > IndicatorMotion {
			raised++
		}
	}

	if checked == 0 {
		return unavailableResult(ModeIndicator)
	}

	raw := float64(raised) / float64(checked)
	return models.StressResult{
		Scorer:     ModeIndicator,
		RawScore:   models.Available(raw),
		Percentage: Percentage(raw),
		Level:      indicatorLevel(raised),
	}
}

func indicatorLevel(raised int) models.StressLevel {
	switch {
	case raised >= 2:
		return models.LevelHigh
	case raised == 1:
		return models.LevelModerate
	default:
		return models.LevelLow
	}
}
