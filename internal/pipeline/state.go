// Package pipeline owns the smoothing and scoring state and serves
// consistent snapshots of it.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synheart/synheart-stress/internal/metrics"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/scoring"
	"github.com/synheart/synheart-stress/internal/smoothing"
	"github.com/synheart/synheart-stress/internal/window"
)

// State is the windowed pipeline. Tick is the only mutator; it is serialized
// by tickMu. Readers take copies under mu and never observe a partially
// computed snapshot.
type State struct {
	profile     string
	source      Source
	smoother    *smoothing.Smoother
	hrv         *window.HRVEstimator
	eval        evaluator
	trendWindow time.Duration
	clock       func() time.Time
	metrics     *metrics.Pipeline

	recordSource models.Source
	session      models.Session
	records      chan models.Record

	tickMu   sync.Mutex
	prev     *models.Sample
	sequence int64

	mu      sync.RWMutex
	history *window.Window[models.Snapshot]
	current *models.Snapshot
}

// NewState builds the pipeline. A missing or partial baseline table is a
// fatal configuration error.
func NewState(opts Options) (*State, error) {
	opts.setDefaults()

	if opts.Source == nil {
		return nil, errors.New("pipeline: no sample source")
	}
	if opts.Scorer == nil {
		return nil, errors.New("pipeline: no scorer")
	}
	if err := opts.Smoothing.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	load, err := scoring.NewLoadEstimator(opts.Baselines)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &State{
		profile:     opts.Profile,
		source:      opts.Source,
		smoother:    smoothing.New(opts.Smoothing, opts.Rand),
		hrv:         window.NewHRVEstimator(opts.WindowRetention, opts.WindowCapacity, opts.HRVMinSamples, opts.HRVMaxDelta),
		eval:        evaluator{scorer: opts.Scorer, load: load},
		trendWindow: opts.TrendWindow,
		clock:       opts.Clock,
		metrics:     opts.Metrics,

		recordSource: opts.RecordSource,
		session: models.Session{
			RunID:   runID,
			Profile: opts.Profile,
			Seed:    opts.Seed,
		},
		records: make(chan models.Record, opts.RecordBuffer),

		history: window.New(opts.WindowRetention, opts.WindowCapacity, func(s models.Snapshot) time.Time {
			return s.Timestamp
		}),
	}, nil
}

// Tick produces one snapshot, waiting for any tick already in progress.
func (s *State) Tick() models.Snapshot {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tickLocked()
}

func (s *State) tickLocked() models.Snapshot {
	now := s.clock()
	raw := s.source.Next(now)

	sample := s.smoother.Smooth(s.prev, raw)
	sample.ID = uuid.NewString()
	sample.Profile = s.profile
	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}

	s.hrv.Push(sample.Timestamp, sample.HeartRate)
	sample.HRV = s.hrv.Estimate()

	snap := s.eval.evaluate(sample)

	// Only the tick mutates history, so reading it here needs no lock.
	points := scorePoints(s.history.Snapshot())
	if snap.Stress.RawScore.Valid {
		points = append(points, scoring.ScorePoint{Timestamp: snap.Timestamp, Score: float64(snap.Stress.Percentage)})
	}
	trend := scoring.AnalyzeTrend(points, s.trendWindow, snap.Timestamp)
	snap.Stress.Trend = &trend

	s.mu.Lock()
	s.history.Push(snap)
	windowLen := s.history.Len()
	s.current = &snap
	s.mu.Unlock()

	s.prev = &sample
	s.sequence++
	s.metrics.ObserveTick(snap, windowLen)
	s.publish(snap)

	return snap
}

func (s *State) publish(snap models.Snapshot) {
	rec := models.NewRecord(uuid.NewString(), s.recordSource, s.session, snap, s.sequence)
	select {
	case s.records <- rec:
	default:
		s.metrics.ObserveDrop()
	}
}

// Current returns the latest snapshot. Before the first tick it runs one
// synchronously; concurrent first callers share that single tick.
func (s *State) Current() models.Snapshot {
	if snap, ok := s.latest(); ok {
		return snap
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if snap, ok := s.latest(); ok {
		return snap
	}
	return s.tickLocked()
}

func (s *State) latest() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Snapshot{}, false
	}
	return *s.current, true
}

// History returns the whole window, oldest first.
func (s *State) History() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Snapshot()
}

// Range returns window entries stamped within d of now, oldest first.
func (s *State) Range(d time.Duration) []models.Snapshot {
	cutoff := s.clock().Add(-d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Since(cutoff)
}

// Trend fits the stress percentage over the last d of history.
func (s *State) Trend(d time.Duration) models.TrendResult {
	return scoring.AnalyzeTrend(scorePoints(s.History()), d, s.clock())
}

// Records returns the channel each completed tick is published on. Records
// are dropped, not queued, when nobody keeps up.
func (s *State) Records() <-chan models.Record {
	return s.records
}

// Session returns the run metadata stamped on records.
func (s *State) Session() models.Session {
	return s.session
}

// Profile returns the profile name this state serves.
func (s *State) Profile() string {
	return s.profile
}

// TrendWindow returns the window used for per-tick trends.
func (s *State) TrendWindow() time.Duration {
	return s.trendWindow
}

// Close closes the records channel. It must not be called while ticks may
// still run.
func (s *State) Close() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	close(s.records)
}

func scorePoints(snaps []models.Snapshot) []scoring.ScorePoint {
	points := make([]scoring.ScorePoint, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Stress.RawScore.Valid {
			continue
		}
		points = append(points, scoring.ScorePoint{
			Timestamp: snap.Timestamp,
			Score:     float64(snap.Stress.Percentage),
		})
	}
	return points
}
