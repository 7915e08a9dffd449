package cli

import (
	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/config"
)

// GlobalOptions are shared flags that apply across commands.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	NoColor    bool
}

var (
	globalOpts GlobalOptions

	// appConfig is loaded before any command runs.
	appConfig *config.Config
)

// loadConfig reads the config file, if any, and applies the global flags
// on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if globalOpts.ConfigPath != "" {
		loaded, err := config.Load(globalOpts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = globalOpts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalOpts.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
