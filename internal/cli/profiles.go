package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available profiles",
	Long:  `Lists the built-in profiles and any loaded from the configured profiles directory.`,
	RunE:  runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	registry, err := loadProfiles(appConfig.Profiles.Dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	descriptions := registry.ListWithDescriptions()
	if len(descriptions) == 0 {
		fmt.Fprintln(out, "No profiles found")
		return nil
	}

	fmt.Fprintln(out, "Available profiles:")
	fmt.Fprintln(out)
	for _, name := range registry.List() {
		marker := " "
		if name == appConfig.Pipeline.Profile {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-20s %s\n", marker, name, descriptions[name])
	}
	fmt.Fprintln(out)
	return nil
}
