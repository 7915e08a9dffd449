package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/mqtt"
)

var (
	watchProfile  string
	watchInterval time.Duration
	watchCount    int
	watchMQTT     string
	watchTopic    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live scores in the terminal",
	Long: `Runs the pipeline in-process and prints one line per tick. With --mqtt
it instead follows records published by a running 'serve'.

Examples:
  synheart-stress watch --profile exam_stress
  synheart-stress watch --mqtt 127.0.0.1:1883`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchProfile, "profile", "", "Profile to run (defaults to the configured profile)")
	f.DurationVar(&watchInterval, "interval", 0, "Tick interval (defaults to the configured interval)")
	f.IntVar(&watchCount, "count", 0, "Stop after this many lines (0 runs until interrupted)")
	f.StringVar(&watchMQTT, "mqtt", "", "Follow records from this MQTT broker (host:port)")
	f.StringVar(&watchTopic, "topic", config.DefaultMQTTTopic, "MQTT topic prefix")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	out := cmd.OutOrStdout()
	color := !globalOpts.NoColor

	if watchMQTT != "" {
		return watchBroker(ctx, out, color)
	}

	cfg := *appConfig
	if watchProfile != "" {
		cfg.Pipeline.Profile = watchProfile
	}
	interval := cfg.Pipeline.TickInterval
	if watchInterval > 0 {
		interval = watchInterval
	}

	rt, err := newStack(ctx, &cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprintf(out, "Watching %s (%s scorer, every %s)\n\n", rt.profile.Name, rt.scorer.Name(), interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; watchCount == 0 || n < watchCount; n++ {
		fmt.Fprintln(out, formatSnapshot(rt.state.Tick(), color))
		// Nobody consumes records here; keep the buffer from filling.
		drain(rt.state.Records())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func watchBroker(ctx context.Context, out io.Writer, color bool) error {
	lines := make(chan models.Record, 64)
	sub, err := mqtt.Subscribe(ctx, watchMQTT, fmt.Sprintf("synheart-watch-%d", os.Getpid()), watchTopic,
		func(topic string, rec models.Record) {
			select {
			case lines <- rec:
			default:
			}
		})
	if err != nil {
		return err
	}
	defer sub.Close()

	fmt.Fprintf(out, "Following %s/# on %s\n\n", watchTopic, watchMQTT)

	for n := 0; watchCount == 0 || n < watchCount; n++ {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-lines:
			fmt.Fprintf(out, "%-12s %s\n", rec.Session.Profile, formatSnapshot(rec.Snapshot, color))
		}
	}
	return nil
}

func drain(ch <-chan models.Record) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
