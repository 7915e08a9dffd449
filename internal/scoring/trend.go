package scoring

import (
	"math"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

// DefaultStableThreshold is the slope magnitude, in score units per second,
// below which a trend is stable.
const DefaultStableThreshold = 0.1

// ScorePoint is one entry of the score history fed to AnalyzeTrend.
type ScorePoint struct {
	Timestamp time.Time
	Score     float64
}

// AnalyzeTrend fits an ordinary least squares line through the points within
// window of now. x is seconds since the earliest retained point. Fewer than two
// points, or points sharing a single instant, give a stable trend.
func AnalyzeTrend(history []ScorePoint, window time.Duration, now time.Time) models.TrendResult {
	cutoff := now.Add(-window)

	var points []ScorePoint
	for _, p := range history {
		if !p.Timestamp.Before(cutoff) && !p.Timestamp.After(now) {
			points = append(points, p)
		}
	}
	if len(points) < 2 {
		return models.TrendResult{Trend: models.TrendStable, Points: len(points)}
	}

	start := points[0].Timestamp
	for _, p := range points[1:] {
		if p.Timestamp.Before(start) {
			start = p.Timestamp
		}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		x := p.Timestamp.Sub(start).Seconds()
		sumX += x
		sumY += p.Score
		sumXY += x * p.Score
		sumX2 += x * x
	}

	n := float64(len(points))
	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < 1e-12 {
		return models.TrendResult{Trend: models.TrendStable, Points: len(points)}
	}
	slope := (n*sumXY - sumX*sumY) / denom

	return models.TrendResult{
		Trend:      classifyTrend(slope),
		ChangeRate: slope,
		Points:     len(points),
	}
}

// slopePrecision is the resolution at which slopes are compared with the
// stable threshold, so summation rounding cannot move a slope across it.
const slopePrecision = 1e9

func classifyTrend(slope float64) models.Trend {
	rounded := math.Round(slope*slopePrecision) / slopePrecision
	switch {
	case math.Abs(rounded) < DefaultStableThreshold:
		return models.TrendStable
	case slope > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}
