package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/scoring"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and print connection info",
	Long:  `Validates the configuration, profiles, scorer and port availability, and prints connection examples.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := appConfig
	fmt.Fprintln(out, "Synheart Stress Environment Check")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Go Version:        %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch:           %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if globalOpts.ConfigPath != "" {
		fmt.Fprintf(out, "Config:            %s\n", globalOpts.ConfigPath)
	} else {
		fmt.Fprintf(out, "Config:            built-in defaults\n")
	}
	fmt.Fprintln(out)

	ok := true
	registry, err := loadProfiles(cfg.Profiles.Dir)
	if err != nil {
		fmt.Fprintf(out, "[FAIL] profiles: %v\n", err)
		ok = false
	} else {
		names := registry.List()
		fmt.Fprintf(out, "[ OK ] %d profiles: %v\n", len(names), names)
		if !registry.Has(cfg.Pipeline.Profile) {
			fmt.Fprintf(out, "[FAIL] configured profile %q is not registered\n", cfg.Pipeline.Profile)
			ok = false
		}
	}

	scorer, err := scoring.New(context.Background(), cfg.ScorerOptions())
	if err != nil {
		fmt.Fprintf(out, "[FAIL] scorer %s: %v\n", cfg.Scoring.Scorer, err)
		ok = false
	} else {
		fmt.Fprintf(out, "[ OK ] scorer: %s\n", scorer.Name())
		closeScorer(scorer)
	}

	if _, err := scoring.NewLoadEstimator(cfg.Baselines); err != nil {
		fmt.Fprintf(out, "[FAIL] baselines: %v\n", err)
		ok = false
	} else {
		fmt.Fprintln(out, "[ OK ] baselines: all six signals")
	}

	s := cfg.Server
	for _, p := range []struct {
		name string
		port int
	}{{"api", s.APIPort}, {"websocket", s.WSPort}, {"sse", s.SSEPort}} {
		if p.port == 0 {
			continue
		}
		if isPortAvailable(s.Host, p.port) {
			fmt.Fprintf(out, "[ OK ] %s port %d is available\n", p.name, p.port)
		} else {
			fmt.Fprintf(out, "[WARN] %s port %d is in use\n", p.name, p.port)
		}
	}
	fmt.Fprintln(out)

	printExamples(out, s.Host, s.APIPort, s.WSPort)

	if !ok {
		return fmt.Errorf("environment check failed")
	}
	fmt.Fprintln(out, "Environment check complete")
	return nil
}

func printExamples(out io.Writer, host string, apiPort, wsPort int) {
	fmt.Fprintln(out, "Connection Examples:")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "curl:")
	fmt.Fprintf(out, "  curl http://%s:%d/api/biometric-data\n", host, apiPort)
	fmt.Fprintf(out, "  curl 'http://%s:%d/api/biometric-data/trend?seconds=60'\n", host, apiPort)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "JavaScript:")
	fmt.Fprintf(out, "  const ws = new WebSocket('ws://%s:%d/stress');\n", host, wsPort)
	fmt.Fprintln(out, "  ws.onmessage = (e) => console.log(JSON.parse(e.data).snapshot.stress);")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Go:")
	fmt.Fprintf(out, "  conn, _, err := websocket.DefaultDialer.Dial(\"ws://%s:%d/stress\", nil)\n", host, wsPort)
	fmt.Fprintln(out, "  for {")
	fmt.Fprintln(out, "    _, message, err := conn.ReadMessage()")
	fmt.Fprintln(out, "    var rec Record")
	fmt.Fprintln(out, "    json.Unmarshal(message, &rec)")
	fmt.Fprintln(out, "  }")
	fmt.Fprintln(out)
}

func isPortAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
