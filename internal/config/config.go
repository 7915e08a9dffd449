// Package config loads the service configuration from YAML or TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/synheart/synheart-stress/internal/logging"
	"github.com/synheart/synheart-stress/internal/profile"
	"github.com/synheart/synheart-stress/internal/scoring"
	"github.com/synheart/synheart-stress/internal/smoothing"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHost         = "127.0.0.1"
	DefaultAPIPort      = 3000
	DefaultWSPort       = 8787
	DefaultSSEPort      = 8788
	DefaultUDPPort      = 8789
	DefaultTickInterval = time.Second
	DefaultRetention    = 40 * time.Second
	DefaultCapacity     = 100
	DefaultHRVMin       = 10
	DefaultHRVMaxDelta  = 0.15
	DefaultTrendWindow  = 60 * time.Second
	DefaultRecordBuffer = 256
	DefaultMQTTTopic    = "synheart/stress"
)

// Config is the top-level configuration.
type Config struct {
	Log       LogConfig         `yaml:"log" toml:"log"`
	Pipeline  PipelineConfig    `yaml:"pipeline" toml:"pipeline"`
	Scoring   ScoringConfig     `yaml:"scoring" toml:"scoring"`
	Baselines scoring.Baselines `yaml:"baselines" toml:"baselines"`
	Smoothing smoothing.Config  `yaml:"smoothing" toml:"smoothing"`
	Server    ServerConfig      `yaml:"server" toml:"server"`
	MQTT      MQTTConfig        `yaml:"mqtt" toml:"mqtt"`
	Profiles  ProfilesConfig    `yaml:"profiles" toml:"profiles"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Hot-reloadable.
	Level string `yaml:"level" toml:"level"`
	// Format is text or json.
	Format string `yaml:"format" toml:"format"`
}

// PipelineConfig controls ticking and history.
type PipelineConfig struct {
	// Profile served by the windowed pipeline.
	Profile      string        `yaml:"profile" toml:"profile"`
	Seed         int64         `yaml:"seed" toml:"seed"`
	TickInterval time.Duration `yaml:"tick_interval" toml:"tick_interval"`

	WindowRetention time.Duration `yaml:"window_retention" toml:"window_retention"`
	WindowCapacity  int           `yaml:"window_capacity" toml:"window_capacity"`
	HRVMinSamples   int           `yaml:"hrv_min_samples" toml:"hrv_min_samples"`
	HRVMaxDelta     float64       `yaml:"hrv_max_delta" toml:"hrv_max_delta"`
	TrendWindow     time.Duration `yaml:"trend_window" toml:"trend_window"`

	// RecordBuffer is the publish buffer between ticks and transports.
	RecordBuffer int `yaml:"record_buffer" toml:"record_buffer"`
}

// ScoringConfig selects the stress scorer.
type ScoringConfig struct {
	// Scorer is one of: minmax | zscore | indicator | wasm.
	Scorer   string          `yaml:"scorer" toml:"scorer"`
	WasmPath string          `yaml:"wasm_path" toml:"wasm_path"`
	Ranges   scoring.Ranges  `yaml:"ranges" toml:"ranges"`
	Weights  scoring.Weights `yaml:"weights" toml:"weights"`
}

// ScorerOptions converts the scoring section to scorer options.
func (c *Config) ScorerOptions() scoring.Options {
	return scoring.Options{
		Mode:      c.Scoring.Scorer,
		Ranges:    c.Scoring.Ranges,
		Weights:   c.Scoring.Weights,
		Baselines: c.Baselines,
		WasmPath:  c.Scoring.WasmPath,
	}
}

// ServerConfig holds listener settings. A zero port disables the listener.
type ServerConfig struct {
	Host    string `yaml:"host" toml:"host"`
	APIPort int    `yaml:"api_port" toml:"api_port"`
	WSPort  int    `yaml:"ws_port" toml:"ws_port"`
	SSEPort int    `yaml:"sse_port" toml:"sse_port"`
	UDPPort int    `yaml:"udp_port" toml:"udp_port"`
	// Encoding of streamed records: json | protobuf.
	Encoding string `yaml:"encoding" toml:"encoding"`
	// CORSOrigins is passed to the API CORS middleware.
	CORSOrigins string `yaml:"cors_origins" toml:"cors_origins"`
}

// MQTTConfig controls record publishing to an MQTT broker.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Broker   string `yaml:"broker" toml:"broker"` // host:port
	Topic    string `yaml:"topic" toml:"topic"`
	ClientID string `yaml:"client_id" toml:"client_id"`
	QoS      byte   `yaml:"qos" toml:"qos"`
	// Embedded starts an in-process broker on Broker.
	Embedded bool `yaml:"embedded" toml:"embedded"`
}

// ProfilesConfig points at additional profile files.
type ProfilesConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Load reads the config file at path. The format follows the extension:
// .toml for TOML, .yaml or .yml for YAML. Missing fields take defaults; a
// missing baselines table takes the built-in baselines, a partial one is an
// error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported file extension %q", ext)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	if err := finish(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func finish(cfg *Config) error {
	if cfg.Baselines.IsZero() {
		cfg.Baselines = scoring.DefaultBaselines()
	}
	if err := validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// defaults returns a Config pre-populated with default values. Baselines are
// left empty so a partial table can be told apart from an absent one.
func defaults() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Pipeline: PipelineConfig{
			Profile:         profile.DefaultName,
			TickInterval:    DefaultTickInterval,
			WindowRetention: DefaultRetention,
			WindowCapacity:  DefaultCapacity,
			HRVMinSamples:   DefaultHRVMin,
			HRVMaxDelta:     DefaultHRVMaxDelta,
			TrendWindow:     DefaultTrendWindow,
			RecordBuffer:    DefaultRecordBuffer,
		},
		Scoring: ScoringConfig{
			Scorer:  scoring.ModeMinMax,
			Ranges:  scoring.DefaultRanges(),
			Weights: scoring.DefaultWeights(),
		},
		Smoothing: smoothing.DefaultConfig(),
		Server: ServerConfig{
			Host:        DefaultHost,
			APIPort:     DefaultAPIPort,
			WSPort:      DefaultWSPort,
			SSEPort:     DefaultSSEPort,
			UDPPort:     DefaultUDPPort,
			Encoding:    "json",
			CORSOrigins: "*",
		},
		MQTT: MQTTConfig{
			Broker:   "127.0.0.1:1883",
			Topic:    DefaultMQTTTopic,
			ClientID: "synheart-stress",
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json")
	}

	p := cfg.Pipeline
	if p.Profile == "" {
		return fmt.Errorf("pipeline.profile is required")
	}
	if p.TickInterval <= 0 {
		return fmt.Errorf("pipeline.tick_interval must be positive")
	}
	if p.WindowRetention <= 0 {
		return fmt.Errorf("pipeline.window_retention must be positive")
	}
	if p.WindowCapacity <= 0 {
		return fmt.Errorf("pipeline.window_capacity must be positive")
	}
	if p.HRVMinSamples < 2 {
		return fmt.Errorf("pipeline.hrv_min_samples must be at least 2")
	}
	if p.HRVMaxDelta <= 0 {
		return fmt.Errorf("pipeline.hrv_max_delta must be positive")
	}
	if p.TrendWindow <= 0 {
		return fmt.Errorf("pipeline.trend_window must be positive")
	}
	if p.RecordBuffer <= 0 {
		return fmt.Errorf("pipeline.record_buffer must be positive")
	}

	if err := validateScoring(cfg.Scoring); err != nil {
		return err
	}
	if err := cfg.Baselines.Validate(); err != nil {
		return fmt.Errorf("baselines: %w", err)
	}
	if err := cfg.Smoothing.Validate(); err != nil {
		return err
	}

	s := cfg.Server
	for name, port := range map[string]int{"api_port": s.APIPort, "ws_port": s.WSPort, "sse_port": s.SSEPort, "udp_port": s.UDPPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("server.%s %d out of range", name, port)
		}
	}
	if s.Encoding != "json" && s.Encoding != "protobuf" {
		return fmt.Errorf("server.encoding must be json or protobuf")
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	return nil
}

func validateScoring(s ScoringConfig) error {
	known := false
	for _, m := range scoring.Modes() {
		if s.Scorer == m {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("scoring.scorer %q unknown (supported: %v)", s.Scorer, scoring.Modes())
	}
	if s.Scorer == scoring.ModeWasm && s.WasmPath == "" {
		return fmt.Errorf("scoring.wasm_path is required for the wasm scorer")
	}

	ranges := map[string]scoring.Range{
		"hr":  s.Ranges.HeartRate,
		"eda": s.Ranges.EDA,
		"hrv": s.Ranges.HRV,
		"rr":  s.Ranges.RespiratoryRate,
	}
	for name, r := range ranges {
		if !(r.Max > r.Min) {
			return fmt.Errorf("scoring.ranges.%s: max must exceed min", name)
		}
	}

	w := s.Weights
	if w.HeartRate < 0 || w.EDA < 0 || w.HRV < 0 || w.RespiratoryRate < 0 {
		return fmt.Errorf("scoring.weights must not be negative")
	}
	if w.HeartRate+w.EDA+w.HRV+w.RespiratoryRate == 0 {
		return fmt.Errorf("scoring.weights must not all be zero")
	}
	return nil
}

// Validate re-checks cfg, for use after command-line overrides.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
