package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/config"
)

var importCmd = &cobra.Command{
	Use:     "import <file|->",
	Short:   "Replace the profile's issues with a JSON array of JIRA issues",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		if !json.Valid(data) {
			return fmt.Errorf("%s: not valid JSON", args[0])
		}
		resp, err := dashClient.ImportIssues(cmd.Context(), scope(), data)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		fmt.Printf("Imported %d issues into %s/%s\n", resp.Count, resp.ProfileID, resp.QueryID)
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Short:   "List stored profiles and queries",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := dashClient.Profiles(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, profiles)
		}
		printProfiles(os.Stdout, profiles)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Short:   "Show or change the field mappings",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := dashClient.GetSettings(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, s)
		}
		printSettings(os.Stdout, s)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <settings.toml>",
	Short: "Store the settings of a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}
		s, err := config.LoadSettingsFile(args[0])
		if err != nil {
			return err
		}
		updated, err := dashClient.UpdateSettings(cmd.Context(), s)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, updated)
		}
		printSettings(os.Stdout, updated)
		return nil
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export <settings.toml>",
	Short: "Write the effective settings to a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := dashClient.GetSettings(cmd.Context())
		if err != nil {
			return err
		}
		if err := config.WriteSettingsFile(args[0], *s); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	},
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsExportCmd)
}
