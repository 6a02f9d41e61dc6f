package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/export"
	"github.com/nvandessel/tick-loop/internal/snapshot"
	"github.com/nvandessel/tick-loop/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run's history as an Arrow IPC file",
		Long: `Export a run's history as an Arrow IPC file.

Two layouts are available:
  stats     one row per tick: counts and reinforcement-field aggregates
  timeline  one row per identity per tick: ancestry, phase, status, position

Examples:
  tickloop export run-000003 --out stats.arrow
  tickloop export run-000003 --format timeline --out timeline.arrow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			var write func(io.Writer, []snapshot.Tick) error
			switch format {
			case "stats":
				write = export.WriteTickStats
			case "timeline":
				write = export.WriteIdentityTimeline
			default:
				return fmt.Errorf("invalid format: %s (must be stats or timeline)", format)
			}
			if out == "" {
				out = fmt.Sprintf("%s-%s.arrow", args[0], format)
			}

			if err := ensureInitialized(root); err != nil {
				return err
			}
			runStore, err := store.NewSQLiteRunStore(root)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer runStore.Close()

			ctx := context.Background()
			history, err := runStore.GetTicks(ctx, args[0])
			if err != nil {
				return err
			}
			if len(history) == 0 {
				return fmt.Errorf("run not found or empty: %s", args[0])
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := write(f, history); err != nil {
				f.Close()
				return fmt.Errorf("failed to write %s export: %w", format, err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id": args[0],
					"format": format,
					"path":   out,
					"ticks":  len(history),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d ticks of %s (%s) to %s\n",
				len(history), args[0], format, out)
			return nil
		},
	}

	cmd.Flags().String("format", "stats", "Export layout: stats or timeline")
	cmd.Flags().String("out", "", "Output file path (default <run-id>-<format>.arrow)")

	return cmd
}
