package scoring

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/synheart/synheart-stress/internal/models"
)

// wasmHeader is the magic number, version and a single type:
// (f64, f64, f64, f64) -> f64.
var wasmHeader = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7c, 0x7c, 0x7c, 0x7c, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x09, 0x01, 0x05, 's', 'c', 'o', 'r', 'e', 0x00, 0x00,
}

// halfModule exports score returning 0.5 for any input.
var halfModule = append(append([]byte{}, wasmHeader...),
	0x0a, 0x0d, 0x01, 0x0b, 0x00,
	0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe0, 0x3f,
	0x0b,
)

// heartRateModule exports score returning its first argument unchanged.
var heartRateModule = append(append([]byte{}, wasmHeader...),
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x20, 0x00, 0x0b,
)

func TestWasmScorer(t *testing.T) {
	ctx := context.Background()

	s, err := NewWasmScorer(ctx, halfModule)
	if err != nil {
		t.Fatalf("NewWasmScorer() error = %v", err)
	}
	defer s.Close(ctx)

	res := s.Compute(atBaseline())
	if res.Scorer != ModeWasm {
		t.Errorf("scorer = %s, want %s", res.Scorer, ModeWasm)
	}
	if raw, ok := res.RawScore.Get(); !ok || math.Abs(raw-0.5) > 1e-9 {
		t.Errorf("raw = %v, want 0.5", res.RawScore)
	}
	if res.Percentage != 50 || res.Level != models.LevelMedium {
		t.Errorf("got %d/%s, want 50/medium", res.Percentage, res.Level)
	}
}

func TestWasmScorerPassesNaNAndClamps(t *testing.T) {
	ctx := context.Background()

	s, err := NewWasmScorer(ctx, heartRateModule)
	if err != nil {
		t.Fatalf("NewWasmScorer() error = %v", err)
	}
	defer s.Close(ctx)

	// The guest echoes HR; 75 is clamped to 1.
	res := s.Compute(atBaseline())
	if res.Percentage != 100 || res.Level != models.LevelHigh {
		t.Errorf("got %d/%s, want 100/high", res.Percentage, res.Level)
	}

	// An unavailable HR arrives as NaN and comes back unavailable.
	sig := atBaseline()
	sig.HeartRate = models.Unavailable
	res = s.Compute(sig)
	if res.RawScore.Valid || res.Level != models.LevelCalculating {
		t.Errorf("got %+v, want calculating", res)
	}
}

func TestWasmScorerRejectsBadModules(t *testing.T) {
	ctx := context.Background()

	if _, err := NewWasmScorer(ctx, []byte("not wasm")); err == nil {
		t.Error("expected error for invalid module")
	}

	// Same module with the export renamed.
	renamed := append([]byte{}, halfModule...)
	renamed[27] = 'S'
	if _, err := NewWasmScorer(ctx, renamed); err == nil {
		t.Error("expected error for missing score export")
	}
}

func TestNewScorerModes(t *testing.T) {
	ctx := context.Background()
	opts := Options{
		Ranges:    DefaultRanges(),
		Weights:   DefaultWeights(),
		Baselines: DefaultBaselines(),
	}

	for _, mode := range []string{"", ModeMinMax, ModeZScore, ModeIndicator} {
		opts.Mode = mode
		s, err := New(ctx, opts)
		if err != nil {
			t.Errorf("New(%q) error = %v", mode, err)
			continue
		}
		if mode != "" && s.Name() != mode {
			t.Errorf("New(%q).Name() = %s", mode, s.Name())
		}
	}

	opts.Mode = "bogus"
	if _, err := New(ctx, opts); err == nil {
		t.Error("expected error for unknown mode")
	}

	opts.Mode = ModeWasm
	if _, err := New(ctx, opts); err == nil {
		t.Error("expected error for wasm without a path")
	}

	path := filepath.Join(t.TempDir(), "half.wasm")
	if err := os.WriteFile(path, halfModule, 0644); err != nil {
		t.Fatal(err)
	}
	opts.WasmPath = path
	s, err := New(ctx, opts)
	if err != nil {
		t.Fatalf("New(wasm) error = %v", err)
	}
	s.(*WasmScorer).Close(ctx)
}
