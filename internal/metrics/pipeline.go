package metrics

import (
	"math"

	"github.com/synheart/synheart-stress/internal/models"
)

// Pipeline groups the metrics the scoring pipeline reports. A nil *Pipeline
// is valid and records nothing.
type Pipeline struct {
	Ticks          *Counter
	SkippedTicks   *Counter
	DroppedRecords *Counter
	StressPercent  *Gauge
	LoadIndex      *Gauge
	WindowSize     *Gauge
	HRV            *Gauge
}

// NewPipeline registers the pipeline metrics on r.
func NewPipeline(r *Registry) *Pipeline {
	return &Pipeline{
		Ticks:          r.NewCounter("synheart_ticks_total", "Completed pipeline ticks."),
		SkippedTicks:   r.NewCounter("synheart_ticks_skipped_total", "Ticks skipped because the previous tick was still running."),
		DroppedRecords: r.NewCounter("synheart_records_dropped_total", "Records dropped because the publish buffer was full."),
		StressPercent:  r.NewGauge("synheart_stress_percent", "Latest stress score, 0-100."),
		LoadIndex:      r.NewGauge("synheart_cognitive_load_index", "Latest cognitive load index."),
		WindowSize:     r.NewGauge("synheart_window_samples", "Samples held in the history window."),
		HRV:            r.NewGauge("synheart_hrv", "Latest HRV estimate; NaN while calculating."),
	}
}

// ObserveTick records a completed tick.
func (p *Pipeline) ObserveTick(snap models.Snapshot, windowLen int) {
	if p == nil {
		return
	}
	p.Ticks.Inc()
	p.StressPercent.Set(float64(snap.Stress.Percentage))
	p.WindowSize.Set(float64(windowLen))
	p.HRV.Set(snap.HRV.Or(math.NaN()))
	if snap.CognitiveLoad != nil {
		p.LoadIndex.Set(snap.CognitiveLoad.Index)
	}
}

// ObserveSkip records a skipped tick.
func (p *Pipeline) ObserveSkip() {
	if p == nil {
		return
	}
	p.SkippedTicks.Inc()
}

// ObserveDrop records a dropped record.
func (p *Pipeline) ObserveDrop() {
	if p == nil {
		return
	}
	p.DroppedRecords.Inc()
}
