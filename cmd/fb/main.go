package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/client"
	"github.com/alfredjeanlab/flowboard/internal/ui"
)

var (
	httpURL    string
	authToken  string
	profileID  string
	queryID    string
	jsonOutput bool

	dashClient client.DashboardClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("FLOWBOARD_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func scope() client.Scope {
	return client.Scope{ProfileID: profileID, QueryID: queryID}
}

var rootCmd = &cobra.Command{
	Use:           "fb <command>",
	Short:         "Active work and completed items dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		dashClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dashClient != nil {
			dashClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "flowboard server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("FLOWBOARD_AUTH_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVarP(&profileID, "profile", "p", "", "profile id (default \"default\")")
	rootCmd.PersistentFlags().StringVar(&queryID, "query-id", "", "saved query id within the profile (default \"default\")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Views
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(completedCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(watchCmd)

	// Data
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(exportCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
