package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/api"
	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/logging"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/mqtt"
	"github.com/synheart/synheart-stress/internal/pipeline"
	"github.com/synheart/synheart-stress/internal/recorder"
	"github.com/synheart/synheart-stress/internal/transport"
)

var (
	serveHost         string
	serveAPIPort      int
	serveWSPort       int
	serveSSEPort      int
	serveUDPPort      int
	serveProfile      string
	serveSeed         int64
	serveTick         time.Duration
	serveScorer       string
	serveEncoding     string
	serveOut          string
	serveMQTT         bool
	serveMQTTBroker   string
	serveMQTTEmbedded bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline and serve scores",
	Long: `Ticks the stress pipeline on a fixed interval and serves the results.

REST:       /api/biometric-data, /history, /range, /trend, /api/profiles, /health, /metrics
WebSocket:  /stress
SSE:        /stress/sse (?profile=name, resumes after Last-Event-ID)
UDP:        send "subscribe" to the UDP port
MQTT:       <topic>/<profile> when enabled

A port of 0 disables that listener.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", config.DefaultHost, "Host to bind to")
	f.IntVar(&serveAPIPort, "api-port", config.DefaultAPIPort, "REST API port")
	f.IntVar(&serveWSPort, "ws-port", config.DefaultWSPort, "WebSocket port")
	f.IntVar(&serveSSEPort, "sse-port", config.DefaultSSEPort, "SSE port")
	f.IntVar(&serveUDPPort, "udp-port", config.DefaultUDPPort, "UDP port")
	f.StringVar(&serveProfile, "profile", "default", "Profile served by the windowed pipeline")
	f.Int64Var(&serveSeed, "seed", 0, "Random seed (0 picks one from the clock)")
	f.DurationVar(&serveTick, "tick", config.DefaultTickInterval, "Tick interval")
	f.StringVar(&serveScorer, "scorer", "minmax", "Stress scorer: minmax|zscore|indicator|wasm")
	f.StringVar(&serveEncoding, "encoding", "json", "Stream encoding: json|protobuf")
	f.StringVar(&serveOut, "out", "", "Also record every snapshot to this NDJSON file")
	f.BoolVar(&serveMQTT, "mqtt", false, "Publish records to MQTT")
	f.StringVar(&serveMQTTBroker, "mqtt-broker", "", "MQTT broker host:port")
	f.BoolVar(&serveMQTTEmbedded, "mqtt-embedded", false, "Start an embedded MQTT broker on --mqtt-broker")
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if f.Changed("api-port") {
		cfg.Server.APIPort = serveAPIPort
	}
	if f.Changed("ws-port") {
		cfg.Server.WSPort = serveWSPort
	}
	if f.Changed("sse-port") {
		cfg.Server.SSEPort = serveSSEPort
	}
	if f.Changed("udp-port") {
		cfg.Server.UDPPort = serveUDPPort
	}
	if f.Changed("profile") {
		cfg.Pipeline.Profile = serveProfile
	}
	if f.Changed("seed") {
		cfg.Pipeline.Seed = serveSeed
	}
	if f.Changed("tick") {
		cfg.Pipeline.TickInterval = serveTick
	}
	if f.Changed("scorer") {
		cfg.Scoring.Scorer = serveScorer
	}
	if f.Changed("encoding") {
		cfg.Server.Encoding = serveEncoding
	}
	if f.Changed("mqtt") {
		cfg.MQTT.Enabled = serveMQTT
	}
	if f.Changed("mqtt-broker") {
		cfg.MQTT.Broker = serveMQTTBroker
	}
	if f.Changed("mqtt-embedded") {
		cfg.MQTT.Embedded = serveMQTTEmbedded
	}
	return cfg.Validate()
}

// starter is anything with the transport lifecycle.
type starter interface {
	Start(ctx context.Context) error
	GetAddress() string
}

type broadcaster interface {
	starter
	BroadcastFromChannel(ctx context.Context, records <-chan models.Record) error
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("serve: interrupt received, shutting down")
		cancel()
	}()

	rt, err := newStack(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	format, err := encoding.ParseFormat(cfg.Server.Encoding)
	if err != nil {
		return err
	}
	enc := encoding.NewEncoder(format)

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	run := func(name string, s starter) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	dispatcher := transport.NewDispatcher(rt.state.Records(), cfg.Pipeline.RecordBuffer)
	fanoutDrops := rt.metrics.NewCounter("synheart_subscriber_drops_total", "Records a slow stream subscriber missed.")
	dispatcher.OnDrop(func(n int) { fanoutDrops.Add(int64(n)) })

	s := cfg.Server
	if s.APIPort > 0 {
		run("api", api.NewServer(api.Config{
			Host:        s.Host,
			Port:        s.APIPort,
			CORSOrigins: s.CORSOrigins,
		}, rt.service, rt.metrics))
	}

	var streams []broadcaster
	if s.WSPort > 0 {
		streams = append(streams, transport.NewWebSocketServer(s.Host, s.WSPort, enc))
	}
	if s.SSEPort > 0 {
		streams = append(streams, transport.NewSSEServer(s.Host, s.SSEPort, enc))
	}
	if s.UDPPort > 0 {
		streams = append(streams, transport.NewUDPServer(s.Host, s.UDPPort, enc))
	}
	for _, b := range streams {
		run(b.GetAddress(), b)
		records := dispatcher.Subscribe()
		go b.BroadcastFromChannel(ctx, records)
	}

	if serveOut != "" {
		rec, err := recorder.NewRecorder(serveOut)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		records := dispatcher.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.RecordFromChannel(ctx, records, nil); err != nil {
				slog.Error("serve: recording failed", "err", err)
			}
		}()
	}

	if cfg.MQTT.Enabled {
		stop, err := startMQTT(ctx, cfg.MQTT, enc, dispatcher.Subscribe())
		if err != nil {
			return err
		}
		defer stop()
	}

	if globalOpts.ConfigPath != "" {
		go watchConfig(ctx, globalOpts.ConfigPath)
	}

	go dispatcher.Run(ctx)

	sched := pipeline.NewScheduler(rt.state, cfg.Pipeline.TickInterval)
	sched.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	printServeBanner(cfg, rt, streams)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		sched.Stop()
		wg.Wait()
		return err
	}

	sched.Stop()
	wg.Wait()
	rt.state.Close()

	slog.Info("serve: stopped", "ticks", sched.Fired(), "skipped", sched.Skipped(), "dropped", dispatcher.GetDroppedCount())
	fmt.Println("\nShutdown complete")
	return nil
}

// startMQTT connects the publisher, starting the embedded broker first when
// configured. The returned func disconnects both.
func startMQTT(ctx context.Context, cfg config.MQTTConfig, enc encoding.Encoder, records <-chan models.Record) (func(), error) {
	var broker *mqtt.Broker
	if cfg.Embedded {
		b, err := mqtt.StartBroker(cfg.Broker, logging.L())
		if err != nil {
			return nil, err
		}
		broker = b
	}

	pub, err := mqtt.Dial(ctx, mqtt.Config{
		Broker:   cfg.Broker,
		Topic:    cfg.Topic,
		ClientID: cfg.ClientID,
		QoS:      cfg.QoS,
		Encoder:  enc,
	})
	if err != nil {
		if broker != nil {
			broker.Close()
		}
		return nil, err
	}

	go func() {
		if err := pub.PublishFromChannel(ctx, records); err != nil && err != context.Canceled {
			slog.Error("serve: mqtt publisher stopped", "err", err)
		}
	}()

	return func() {
		slog.Info("serve: mqtt publisher closing", "published", pub.Published(), "failed", pub.Failed())
		pub.Close()
		if broker != nil {
			broker.Close()
		}
	}, nil
}

// watchConfig applies hot-reloadable settings. Only the log level is live;
// everything else needs a restart.
func watchConfig(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			slog.Warn("serve: ignoring log level", "level", cfg.Log.Level, "err", err)
			return
		}
		slog.Info("serve: log level applied", "level", cfg.Log.Level)
	})
	if err != nil {
		slog.Warn("serve: config watch disabled", "path", path, "err", err)
	}
}

func printServeBanner(cfg *config.Config, rt *stack, streams []broadcaster) {
	fmt.Printf("Synheart Stress Started\n\n")
	fmt.Printf("Profile:      %s\n", rt.profile.Name)
	fmt.Printf("Scorer:       %s\n", rt.scorer.Name())
	fmt.Printf("Tick:         %s\n", cfg.Pipeline.TickInterval)
	fmt.Printf("Run ID:       %s\n", rt.state.Session().RunID)
	if cfg.Server.APIPort > 0 {
		fmt.Printf("API:          http://%s:%d/api/biometric-data\n", cfg.Server.Host, cfg.Server.APIPort)
	}
	for _, s := range streams {
		fmt.Printf("Stream:       %s\n", s.GetAddress())
	}
	if cfg.MQTT.Enabled {
		fmt.Printf("MQTT:         %s (%s/<profile>)\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	}
	if serveOut != "" {
		fmt.Printf("Recording:    %s\n", serveOut)
	}
	fmt.Println()
}
