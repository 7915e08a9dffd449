package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "synheart-stress",
	Short: "Synheart Stress - real-time stress and cognitive load from biometric telemetry",
	Long: `Synheart Stress simulates a biometric telemetry feed (heart rate, EDA,
HRV, respiration, eye movement, pupil size) and turns it into a smoothed,
bounded stress score and cognitive load index.

Scores are served over a REST API and streamed over WebSocket, SSE, UDP
and MQTT.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := logging.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		appConfig = cfg
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&globalOpts.ConfigPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	pf.StringVar(&globalOpts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&globalOpts.LogFormat, "log-format", "", "Log format: text|json")
	pf.BoolVar(&globalOpts.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}
