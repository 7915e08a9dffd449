package window

import (
	"math"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
)

// HRV estimator defaults.
const (
	DefaultMinSamples = 10
	DefaultMaxDelta   = 0.15
	HRVFloor          = 0.5
	HRVCeiling        = 2.8
)

type hrPoint struct {
	at time.Time
	hr float64
}

// HRVEstimator derives a heart-rate-variability index from the dispersion of
// recent heart-rate samples.
type HRVEstimator struct {
	window     *Window[hrPoint]
	minSamples int
	maxDelta   float64
	last       models.Reading
}

// NewHRVEstimator returns an estimator over its own window of HR samples.
func NewHRVEstimator(retention time.Duration, capacity, minSamples int, maxDelta float64) *HRVEstimator {
	return &HRVEstimator{
		window:     New(retention, capacity, func(p hrPoint) time.Time { return p.at }),
		minSamples: minSamples,
		maxDelta:   maxDelta,
	}
}

// Push records a heart-rate sample.
func (e *HRVEstimator) Push(at time.Time, hr float64) {
	e.window.Push(hrPoint{at: at, hr: hr})
}

// Len returns the number of retained HR samples.
func (e *HRVEstimator) Len() int {
	return e.window.Len()
}

// Estimate returns the current HRV, or Unavailable during warm-up. The
// population standard deviation of HR is mapped affinely onto the HRV band,
// clamped to [HRVFloor, HRVCeiling], and bounded to maxDelta from the
// previously emitted value.
func (e *HRVEstimator) Estimate() models.Reading {
	n := e.window.Len()
	if n < e.minSamples || n == 0 {
		return models.Unavailable
	}

	var sum float64
	e.window.Each(func(p hrPoint) { sum += p.hr })
	mean := sum / float64(n)

	var sq float64
	e.window.Each(func(p hrPoint) {
		d := p.hr - mean
		sq += d * d
	})
	std := math.Sqrt(sq / float64(n))

	hrv := clamp((std/8)*2.3+0.5, HRVFloor, HRVCeiling)

	if prev, ok := e.last.Get(); ok && e.maxDelta > 0 {
		hrv = clamp(hrv, prev-e.maxDelta, prev+e.maxDelta)
	}

	e.last = models.Available(hrv)
	return e.last
}

// Reset drops history and the last emitted value.
func (e *HRVEstimator) Reset() {
	e.window = New(e.window.Retention(), e.window.Capacity(), e.window.stamp)
	e.last = models.Unavailable
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
