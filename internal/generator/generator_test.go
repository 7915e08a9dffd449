package generator

import (
	"math"
	"testing"
	"time"

	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
)

func builtinEngine(t *testing.T, name string, start time.Time) *profile.Engine {
	t.Helper()
	r, err := profile.Builtin()
	if err != nil {
		t.Fatalf("profile.Builtin() error = %v", err)
	}
	p, err := r.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return profile.NewEngine(p, start)
}

func TestGeneratorDeterministic(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewSeeded(builtinEngine(t, profile.DefaultName, start), 42)
	b := NewSeeded(builtinEngine(t, profile.DefaultName, start), 42)

	for i := 0; i < 50; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		if sa, sb := a.Next(now), b.Next(now); sa != sb {
			t.Fatalf("tick %d: same seed produced %+v and %+v", i, sa, sb)
		}
	}
}

func TestGeneratorRanges(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewSeeded(builtinEngine(t, "exam_stress", start), 7)

	for i := 0; i < 600; i++ {
		s := g.Next(start.Add(time.Duration(i) * time.Second))
		if s.HeartRate < 40 || s.HeartRate > 200 {
			t.Fatalf("hr %v out of range", s.HeartRate)
		}
		if s.EDA < 0 || s.EDA > 20 {
			t.Fatalf("eda %v out of range", s.EDA)
		}
		if s.HRV < 0 || s.HRV > 3.5 {
			t.Fatalf("hrv %v out of range", s.HRV)
		}
		if v, ok := s.EyeMovement.Get(); ok && (v < 0 || v > 1) {
			t.Fatalf("eye %v out of range", v)
		}
	}
}

func TestGeneratorPhaseOverride(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewSeeded(builtinEngine(t, "exam_stress", start), 1)

	mean := func(from time.Duration) float64 {
		var sum float64
		for i := 0; i < 60; i++ {
			sum += g.Next(start.Add(from + time.Duration(i)*time.Second)).HeartRate
		}
		return sum / 60
	}

	anticipation := mean(0)
	peak := mean(4 * time.Minute)
	if peak-anticipation < 8 {
		t.Errorf("peak mean hr %.1f not clearly above anticipation %.1f", peak, anticipation)
	}
}

func TestUnconfiguredOptionalSignals(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewSeeded(builtinEngine(t, "meditation", start), 1)

	s := g.Next(start)
	if s.EyeMovement.Valid || s.PupilSize.Valid {
		t.Errorf("meditation profile has no eye tracking, got eye=%v pupil=%v", s.EyeMovement, s.PupilSize)
	}
}

func TestApplyCorrelations(t *testing.T) {
	s := models.RawSample{
		HeartRate: 80,
		EDA:       6,
		HRV:       2,
		PupilSize: models.Available(4),
		Motion:    models.Vector3{Z: 13},
	}
	applyCorrelations(&s)

	if s.HeartRate != 84 {
		t.Errorf("hr = %v, want 84", s.HeartRate)
	}
	if math.Abs(s.HRV-1.8) > 1e-9 {
		t.Errorf("hrv = %v, want 1.8", s.HRV)
	}
	if p := s.PupilSize.Value; math.Abs(p-4.2) > 1e-9 {
		t.Errorf("pupil = %v, want 4.2", p)
	}
}

func TestAggregator(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator()

	if s := a.Summary(); s.Samples != 0 || s.MeanHR != 0 {
		t.Errorf("empty summary = %+v", s)
	}

	snaps := []models.Snapshot{
		{
			Sample: models.Sample{Timestamp: start, HeartRate: 70, EDA: 2, RespiratoryRate: 12},
			Stress: models.StressResult{Percentage: 40, Level: models.LevelLow},
		},
		{
			Sample:        models.Sample{Timestamp: start.Add(time.Second), HeartRate: 80, EDA: 3, RespiratoryRate: 16, HRV: models.Available(1.2)},
			Stress:        models.StressResult{Percentage: 60, Level: models.LevelMedium},
			CognitiveLoad: &models.CognitiveLoadResult{Index: 1.1, Level: models.LoadModerate},
		},
	}
	for _, s := range snaps {
		a.Add(s)
	}

	s := a.Summary()
	if s.Samples != 2 || s.MeanHR != 75 || s.MeanStress != 50 || s.PeakStress != 60 {
		t.Errorf("summary = %+v", s)
	}
	if v, ok := s.MeanHRV.Get(); !ok || v != 1.2 {
		t.Errorf("mean hrv = %v, want 1.2 over available samples only", s.MeanHRV)
	}
	if s.Levels[models.LevelLow] != 1 || s.Levels[models.LevelMedium] != 1 {
		t.Errorf("levels = %v", s.Levels)
	}
	if s.LoadLevels[models.LoadModerate] != 1 {
		t.Errorf("load levels = %v", s.LoadLevels)
	}
	if !s.From.Equal(start) || !s.To.Equal(start.Add(time.Second)) {
		t.Errorf("span = %v..%v", s.From, s.To)
	}
}
