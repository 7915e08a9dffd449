package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/recorder"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, "░░░░░"},
		{0.4, "██░░░"},
		{1, "█████"},
		{1.5, "█████"},
		{-1, "░░░░░"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.score, 5); got != tt.want {
			t.Errorf("renderBar(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := models.Snapshot{
		Sample: models.Sample{
			Timestamp:       time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC),
			HeartRate:       88,
			EDA:             3.25,
			RespiratoryRate: 17,
			HRV:             models.Unavailable,
		},
		Stress: models.StressResult{
			Percentage: 67,
			Level:      models.LevelMedium,
			Trend:      &models.TrendResult{Trend: models.TrendIncreasing},
		},
	}

	line := formatSnapshot(snap, false)
	for _, want := range []string{"09:30:15", " 67%", "medium", "↑", "load calculating", "hr 88", "eda 3.25", "hrv calculating", "rr 17.0"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	snap.CognitiveLoad = &models.CognitiveLoadResult{Index: 1.73, Level: models.LoadHigh}
	if line := formatSnapshot(snap, false); !strings.Contains(line, "load 1.73 high") {
		t.Errorf("line %q missing load", line)
	}
}

func TestRecordSession(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Profile = "exam_stress"
	cfg.Pipeline.Seed = 42

	clock := &simClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rt, err := newStack(context.Background(), cfg, clock.Now)
	if err != nil {
		t.Fatalf("newStack: %v", err)
	}
	defer rt.Close()

	path := filepath.Join(t.TempDir(), "exam.ndjson")
	rec, err := recorder.NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	summary, err := recordSession(rt, clock, rec, 30, time.Second)
	if err != nil {
		t.Fatalf("recordSession: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if summary.Samples != 30 {
		t.Errorf("samples = %d, want 30", summary.Samples)
	}
	if got := summary.To.Sub(summary.From); got != 29*time.Second {
		t.Errorf("span = %v, want 29s", got)
	}
	if !summary.MeanHRV.Valid {
		t.Error("HRV should be available after the warm-up")
	}
	if summary.PeakStress < 0 || summary.PeakStress > 100 {
		t.Errorf("peak = %d", summary.PeakStress)
	}

	records, err := recorder.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 30 {
		t.Fatalf("records = %d, want 30", len(records))
	}
	for i, r := range records {
		if r.Session.Profile != "exam_stress" {
			t.Fatalf("record %d profile = %q", i, r.Session.Profile)
		}
		if i > 0 && r.Meta.Sequence <= records[i-1].Meta.Sequence {
			t.Fatalf("sequence not increasing at %d", i)
		}
		// Warm-up: HRV is calculating for the first ticks.
		if i == 0 && r.Snapshot.HRV.Valid {
			t.Error("first record should have no HRV yet")
		}
	}

	var out bytes.Buffer
	printSummary(&out, rt.profile, path, summary)
	if !strings.Contains(out.String(), "Samples:      30") {
		t.Errorf("summary output:\n%s", out.String())
	}
}

func TestDescribeProfile(t *testing.T) {
	registry, err := loadProfiles("")
	if err != nil {
		t.Fatalf("loadProfiles: %v", err)
	}
	p, err := registry.Get("exam_stress")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var out bytes.Buffer
	describeProfile(&out, p)
	text := out.String()
	for _, want := range []string{"Profile: exam_stress", "Signals:", "Phases:", "peak", "add=12.00"} {
		if !strings.Contains(text, want) {
			t.Errorf("describe output missing %q:\n%s", want, text)
		}
	}
}

func TestNewStackUnknownProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Profile = "missing"
	if _, err := newStack(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
