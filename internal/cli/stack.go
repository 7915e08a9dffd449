package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/generator"
	"github.com/synheart/synheart-stress/internal/metrics"
	"github.com/synheart/synheart-stress/internal/pipeline"
	"github.com/synheart/synheart-stress/internal/profile"
	"github.com/synheart/synheart-stress/internal/scoring"
)

// stack is the assembled pipeline for one command invocation.
type stack struct {
	registry *profile.Registry
	profile  *profile.Profile
	scorer   scoring.Scorer
	state    *pipeline.State
	service  *pipeline.Service
	metrics  *metrics.Registry
}

// loadProfiles returns the built-in profiles plus any found in dir.
func loadProfiles(dir string) (*profile.Registry, error) {
	registry, err := profile.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in profiles: %w", err)
	}
	if dir != "" {
		if err := registry.LoadFromDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load profiles from %s: %w", dir, err)
		}
	}
	return registry, nil
}

// newStack wires generator, scorer and state from cfg. clock may be nil
// for wall time.
func newStack(ctx context.Context, cfg *config.Config, clock func() time.Time) (*stack, error) {
	if clock == nil {
		clock = time.Now
	}

	registry, err := loadProfiles(cfg.Profiles.Dir)
	if err != nil {
		return nil, err
	}
	prof, err := registry.Get(cfg.Pipeline.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile '%s': %w", cfg.Pipeline.Profile, err)
	}

	scorer, err := scoring.New(ctx, cfg.ScorerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	seed := cfg.Pipeline.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	reg := metrics.NewRegistry()
	p := cfg.Pipeline
	state, err := pipeline.NewState(pipeline.Options{
		Profile:         prof.Name,
		Source:          generator.NewSeeded(profile.NewEngine(prof, clock()), seed),
		Scorer:          scorer,
		Baselines:       cfg.Baselines,
		Smoothing:       cfg.Smoothing,
		Seed:            seed,
		WindowRetention: p.WindowRetention,
		WindowCapacity:  p.WindowCapacity,
		HRVMinSamples:   p.HRVMinSamples,
		HRVMaxDelta:     p.HRVMaxDelta,
		TrendWindow:     p.TrendWindow,
		RecordBuffer:    p.RecordBuffer,
		RunID:           uuid.NewString(),
		Clock:           clock,
		Metrics:         metrics.NewPipeline(reg),
	})
	if err != nil {
		closeScorer(scorer)
		return nil, err
	}

	slog.Debug("cli: pipeline ready", "profile", prof.Name, "scorer", scorer.Name(), "seed", seed)

	return &stack{
		registry: registry,
		profile:  prof,
		scorer:   scorer,
		state:    state,
		service:  pipeline.NewService(state, registry, seed),
		metrics:  reg,
	}, nil
}

// Close releases the scorer. The state's record channel is left to the
// command, which knows when ticking has stopped.
func (r *stack) Close() {
	closeScorer(r.scorer)
}

func closeScorer(s scoring.Scorer) {
	if c, ok := s.(interface{ Close(context.Context) error }); ok {
		if err := c.Close(context.Background()); err != nil {
			slog.Warn("cli: closing scorer", "err", err)
		}
	}
}
