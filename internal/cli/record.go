package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/generator"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/profile"
	"github.com/synheart/synheart-stress/internal/recorder"
)

var (
	recordProfile  string
	recordDuration time.Duration
	recordInterval time.Duration
	recordOut      string
	recordSeed     int64
	recordSummary  string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Simulate a session and record it to a file",
	Long: `Runs the pipeline against a simulated clock, as fast as possible, and
writes one NDJSON record per tick. A summary of the session is printed at
the end.

Examples:
  synheart-stress record --profile exam_stress --duration 10m --out exam.ndjson
  synheart-stress record --duration 1h --interval 5s --seed 42 --out hour.ndjson`,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordProfile, "profile", "", "Profile to simulate (defaults to the configured profile)")
	f.DurationVar(&recordDuration, "duration", 5*time.Minute, "Simulated session length")
	f.DurationVar(&recordInterval, "interval", 0, "Simulated tick interval (defaults to the configured interval)")
	f.StringVar(&recordOut, "out", "", "Output file (required)")
	f.Int64Var(&recordSeed, "seed", 0, "Random seed (0 picks one from the clock)")
	f.StringVar(&recordSummary, "summary", "text", "Summary format: text|json|none")
	recordCmd.MarkFlagRequired("out")
}

// simClock is advanced by the recording loop instead of wall time.
type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	if recordProfile != "" {
		cfg.Pipeline.Profile = recordProfile
	}
	if recordSeed != 0 {
		cfg.Pipeline.Seed = recordSeed
	}
	interval := cfg.Pipeline.TickInterval
	if recordInterval > 0 {
		interval = recordInterval
	}
	if recordDuration < interval {
		return fmt.Errorf("duration %s is shorter than one tick (%s)", recordDuration, interval)
	}
	switch recordSummary {
	case "text", "json", "none":
	default:
		return fmt.Errorf("unknown summary format %q", recordSummary)
	}

	clock := &simClock{now: time.Now().UTC().Truncate(time.Second)}
	rt, err := newStack(context.Background(), &cfg, clock.Now)
	if err != nil {
		return err
	}
	defer rt.Close()

	rec, err := recorder.NewRecorder(recordOut)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	summary, err := recordSession(rt, clock, rec, int(recordDuration/interval), interval)
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch recordSummary {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "text":
		printSummary(out, rt.profile, recordOut, summary)
	}
	return nil
}

// recordSession ticks rt n times, advancing clock by interval before each
// tick, and writes every published record.
func recordSession(rt *stack, clock *simClock, rec *recorder.Recorder, n int, interval time.Duration) (generator.Summary, error) {
	agg := generator.NewAggregator()
	records := rt.state.Records()

	for i := 0; i < n; i++ {
		clock.Advance(interval)
		snap := rt.state.Tick()
		agg.Add(snap)

		// Each tick publishes exactly one record into a buffer nobody else reads.
		select {
		case r := <-records:
			if err := rec.Record(r); err != nil {
				return generator.Summary{}, err
			}
		default:
			return generator.Summary{}, fmt.Errorf("tick %d published no record", i)
		}
	}
	return agg.Summary(), nil
}

func printSummary(w io.Writer, p *profile.Profile, out string, s generator.Summary) {
	fmt.Fprintf(w, "Recording complete: %s\n\n", out)
	fmt.Fprintf(w, "Profile:      %s\n", p.Name)
	fmt.Fprintf(w, "Samples:      %d\n", s.Samples)
	if s.Samples > 0 {
		fmt.Fprintf(w, "Span:         %s\n", s.To.Sub(s.From))
	}
	fmt.Fprintf(w, "Mean HR:      %.1f bpm\n", s.MeanHR)
	fmt.Fprintf(w, "Mean EDA:     %.2f uS\n", s.MeanEDA)
	fmt.Fprintf(w, "Mean RR:      %.1f /min\n", s.MeanRR)
	fmt.Fprintf(w, "Mean HRV:     %s\n", s.MeanHRV)
	fmt.Fprintf(w, "Mean stress:  %.1f%%\n", s.MeanStress)
	fmt.Fprintf(w, "Peak stress:  %d%%\n", s.PeakStress)

	fmt.Fprintln(w, "\nStress levels:")
	for _, level := range []models.StressLevel{
		models.LevelCalculating, models.LevelRest, models.LevelLow,
		models.LevelMedium, models.LevelModerate, models.LevelHigh,
	} {
		if n := s.Levels[level]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", level, n)
		}
	}
	if len(s.LoadLevels) > 0 {
		fmt.Fprintln(w, "\nCognitive load:")
		for _, level := range []models.LoadLevel{models.LoadLow, models.LoadModerate, models.LoadHigh, models.LoadVeryHigh} {
			if n := s.LoadLevels[level]; n > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", level, n)
			}
		}
	}
	fmt.Fprintln(w)
}
