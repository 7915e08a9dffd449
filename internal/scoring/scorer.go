package scoring

import (
	"context"
	"fmt"

	"github.com/synheart/synheart-stress/internal/models"
)

// Scorer modes selectable through configuration.
const (
	ModeMinMax    = "minmax"
	ModeZScore    = "zscore"
	ModeIndicator = "indicator"
	ModeWasm      = "wasm"
)

// Scorer turns a set of signals into a stress result.
type Scorer interface {
	Name() string
	Compute(sig Signals) models.StressResult
}

// Options selects and parameterises a Scorer.
type Options struct {
	Mode      string
	Ranges    Ranges
	Weights   Weights
	Baselines Baselines
	WasmPath  string
}

// Modes lists the supported scorer modes.
func Modes() []string {
	return []string{ModeMinMax, ModeZScore, ModeIndicator, ModeWasm}
}

// New builds the scorer named by opts.Mode. An empty mode selects minmax.
// Scorers holding resources (wasm) should be closed by the caller through
// Close when they implement it.
func New(ctx context.Context, opts Options) (Scorer, error) {
	switch opts.Mode {
	case "", ModeMinMax:
		return NewMinMaxScorer(opts.Ranges, opts.Weights), nil
	case ModeZScore:
		return NewZScoreScorer(opts.Baselines)
	case ModeIndicator:
		return NewIndicatorScorer(opts.Ranges.EDA), nil
	case ModeWasm:
		if opts.WasmPath == "" {
			return nil, fmt.Errorf("wasm scorer requires a module path")
		}
		return LoadWasmScorer(ctx, opts.WasmPath)
	default:
		return nil, fmt.Errorf("unknown scorer %q (supported: %v)", opts.Mode, Modes())
	}
}
