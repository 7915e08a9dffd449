package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/synheart/synheart-stress/internal/profile"
)

var describeCmd = &cobra.Command{
	Use:   "describe <profile>",
	Short: "Describe a profile in detail",
	Long:  `Shows the signals and phases of a profile.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	registry, err := loadProfiles(appConfig.Profiles.Dir)
	if err != nil {
		return err
	}

	p, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("profile not found: %w", err)
	}

	describeProfile(cmd.OutOrStdout(), p)
	return nil
}

func describeProfile(w io.Writer, p *profile.Profile) {
	fmt.Fprintf(w, "Profile: %s\n", p.Name)
	fmt.Fprintf(w, "Description: %s\n", p.Description)
	duration := p.Duration
	if duration == "" {
		duration = "unlimited"
	}
	fmt.Fprintf(w, "Duration: %s\n\n", duration)

	fmt.Fprintln(w, "Signals:")
	for _, name := range sortedSignals(p.Signals) {
		fmt.Fprintf(w, "  %s\n", name)
		writeSignal(w, "    ", p.Signals[name])
	}

	if len(p.Phases) > 0 {
		fmt.Fprintln(w, "\nPhases:")
		for i, phase := range p.Phases {
			fmt.Fprintf(w, "  %d. %s (duration: %s)\n", i+1, phase.Name, phase.Duration)
			for _, name := range sortedSignals(phase.Overrides) {
				o := phase.Overrides[name]
				fmt.Fprintf(w, "       %s:", name)
				if o.Add != 0 {
					fmt.Fprintf(w, " add=%.2f", o.Add)
				}
				if o.Multiply != 0 {
					fmt.Fprintf(w, " multiply=%.2f", o.Multiply)
				}
				if o.Baseline != nil {
					fmt.Fprintf(w, " baseline=%v", o.Baseline)
				}
				if o.Noise != 0 {
					fmt.Fprintf(w, " noise=%v", o.Noise)
				}
				fmt.Fprintln(w)
			}
		}
	}
	fmt.Fprintln(w)
}

func writeSignal(w io.Writer, indent string, c *profile.SignalConfig) {
	if c == nil {
		return
	}
	if c.Baseline != nil {
		fmt.Fprintf(w, "%sBaseline: %v\n", indent, c.Baseline)
	}
	if c.Noise != 0 {
		fmt.Fprintf(w, "%sNoise: %v\n", indent, c.Noise)
	}
	if c.Unit != "" {
		fmt.Fprintf(w, "%sUnit: %s\n", indent, c.Unit)
	}
	if c.Add != 0 {
		fmt.Fprintf(w, "%sOffset: %+.2f\n", indent, c.Add)
	}
	if c.Dropout != 0 {
		fmt.Fprintf(w, "%sDropout: %.0f%%\n", indent, c.Dropout*100)
	}
}

func sortedSignals(m map[string]*profile.SignalConfig) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
