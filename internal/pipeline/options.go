package pipeline

import (
	"math/rand"
	"time"

	"github.com/synheart/synheart-stress/internal/metrics"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
	"github.com/synheart/synheart-stress/internal/scoring"
	"github.com/synheart/synheart-stress/internal/smoothing"
	"github.com/synheart/synheart-stress/internal/window"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultTickInterval    = time.Second
	DefaultWindowRetention = 40 * time.Second
	DefaultWindowCapacity  = 100
	DefaultTrendWindow     = 60 * time.Second
	DefaultRecordBuffer    = 256
)

// Source produces raw samples. generator.Generator is the usual
// implementation.
type Source interface {
	Next(now time.Time) models.RawSample
}

// SourceFunc adapts a function to Source.
type SourceFunc func(now time.Time) models.RawSample

func (f SourceFunc) Next(now time.Time) models.RawSample { return f(now) }

// Options configures a State.
type Options struct {
	Profile string
	Source  Source
	Scorer  scoring.Scorer

	Baselines scoring.Baselines
	Smoothing smoothing.Config
	Rand      *rand.Rand
	Seed      int64

	WindowRetention time.Duration
	WindowCapacity  int
	HRVMinSamples   int
	HRVMaxDelta     float64
	TrendWindow     time.Duration

	// RecordBuffer sizes the channel returned by State.Records.
	RecordBuffer int
	RecordSource models.Source
	RunID        string

	Clock   func() time.Time
	Metrics *metrics.Pipeline
}

func (o *Options) setDefaults() {
	if o.Profile == "" {
		o.Profile = profile.DefaultName
	}
	if o.Smoothing.Mode == "" {
		o.Smoothing = smoothing.DefaultConfig()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(o.Seed))
	}
	if o.WindowRetention == 0 {
		o.WindowRetention = DefaultWindowRetention
	}
	if o.WindowCapacity == 0 {
		o.WindowCapacity = DefaultWindowCapacity
	}
	if o.HRVMinSamples == 0 {
		o.HRVMinSamples = window.DefaultMinSamples
	}
	if o.HRVMaxDelta == 0 {
		o.HRVMaxDelta = window.DefaultMaxDelta
	}
	if o.TrendWindow == 0 {
		o.TrendWindow = DefaultTrendWindow
	}
	if o.RecordBuffer == 0 {
		o.RecordBuffer = DefaultRecordBuffer
	}
	if o.RecordSource.Type == "" {
		o.RecordSource = models.Source{Type: "simulator", ID: "synheart-stress"}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}
