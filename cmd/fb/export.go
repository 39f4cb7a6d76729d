package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/config"
	snapshot "github.com/alfredjeanlab/flowboard/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	Short:   "Write a JSONL snapshot of the local store",
	Long:    "Reads the store selected by FLOWBOARD_DATABASE_URL / FLOWBOARD_SQLITE_PATH directly.\nWith --push the snapshot is sent to the configured sync destinations instead.",
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	// The export reads the store directly; no HTTP client is needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		push, _ := cmd.Flags().GetBool("push")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()

		if push {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			dests := buildDestinations(ctx, cfg, logger)
			if len(dests) == 0 {
				return fmt.Errorf("no sync destination configured (set FLOWBOARD_SYNC_S3_BUCKET or FLOWBOARD_SYNC_GIT_REPO)")
			}
			status := snapshot.NewScheduler(st, dests, 0, logger).SyncOnce(ctx)
			if jsonOutput {
				if err := printJSON(os.Stdout, status); err != nil {
					return err
				}
			}
			if status.Err != "" {
				return fmt.Errorf("export failed: %s", status.Err)
			}
			if status.Failed > 0 {
				return fmt.Errorf("%d of %d destinations failed", status.Failed, len(dests))
			}
			return nil
		}

		out := os.Stdout
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		sum, err := snapshot.ExportJSONL(ctx, st, out, time.Now())
		if err != nil {
			return err
		}
		if out != os.Stdout {
			fmt.Fprintf(os.Stderr, "Wrote snapshot %s: %d profiles, %d issues, %d state records\n",
				sum.SnapshotID, sum.Profiles, sum.Issues, sum.States)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("push", false, "send the snapshot to the configured sync destinations")
}
