package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/recorder"
	"github.com/synheart/synheart-stress/internal/transport"
)

var (
	replayIn       string
	replaySpeed    float64
	replayLoop     bool
	replayHost     string
	replayPort     int
	replayEncoding string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session over WebSocket",
	Long: `Replay records from a previously recorded NDJSON file, keeping their
original spacing.

Examples:
  synheart-stress replay --in exam.ndjson
  synheart-stress replay --in exam.ndjson --speed 10 --loop`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "Input file to replay (required)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "Loop playback continuously")
	replayCmd.Flags().StringVar(&replayHost, "host", "127.0.0.1", "Host to bind to")
	replayCmd.Flags().IntVar(&replayPort, "port", 8787, "Port to listen on")
	replayCmd.Flags().StringVar(&replayEncoding, "encoding", "json", "Stream encoding: json|protobuf")
	replayCmd.MarkFlagRequired("in")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replaySpeed <= 0 {
		return fmt.Errorf("speed must be positive")
	}
	format, err := encoding.ParseFormat(replayEncoding)
	if err != nil {
		return err
	}

	rep := recorder.NewReplayer(replayIn, replaySpeed, replayLoop)

	count, err := rep.CountRecords()
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	first, err := rep.FirstRecord()
	if err != nil {
		return fmt.Errorf("failed to read first record: %w", err)
	}

	records := make(chan models.Record, 100)
	wsServer := transport.NewWebSocketServer(replayHost, replayPort, encoding.NewEncoder(format))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("replay: interrupt received, shutting down")
		cancel()
	}()

	go func() {
		if err := wsServer.Start(ctx); err != nil && err != context.Canceled {
			slog.Error("replay: websocket server failed", "err", err)
			cancel()
		}
	}()

	time.Sleep(100 * time.Millisecond)

	fmt.Printf("Replay Session Started\n\n")
	fmt.Printf("File:         %s\n", replayIn)
	fmt.Printf("Records:      %d\n", count)
	fmt.Printf("Profile:      %s\n", first.Session.Profile)
	fmt.Printf("Run ID:       %s\n", first.Session.RunID)
	fmt.Printf("Speed:        %.1fx\n", replaySpeed)
	fmt.Printf("Loop:         %v\n", replayLoop)
	fmt.Printf("WebSocket:    %s\n\n", wsServer.GetAddress())

	go func() {
		if err := wsServer.BroadcastFromChannel(ctx, records); err != nil && err != context.Canceled {
			slog.Error("replay: broadcast failed", "err", err)
		}
	}()

	fmt.Println("Press Ctrl+C to stop")

	if err := rep.Replay(ctx, records); err != nil && err != context.Canceled {
		return fmt.Errorf("replay error: %w", err)
	}
	close(records)

	fmt.Println("\nReplay complete")
	return nil
}
