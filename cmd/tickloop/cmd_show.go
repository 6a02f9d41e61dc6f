package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/store"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "List recorded runs or show one run",
		Long: `List recorded runs or show one run.

Without arguments, lists all runs in creation order. With a run ID, shows
its metadata; with --tick, prints that tick's full snapshot.

Examples:
  tickloop show                      # List all runs
  tickloop show run-000003           # Show run metadata
  tickloop show run-000003 --tick 5  # Print tick 5's snapshot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			tick, _ := cmd.Flags().GetInt("tick")

			if err := ensureInitialized(root); err != nil {
				return err
			}
			runStore, err := store.NewSQLiteRunStore(root)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer runStore.Close()

			ctx := context.Background()

			if len(args) == 0 {
				return listRuns(ctx, cmd, runStore, jsonOut)
			}
			if tick > 0 {
				return showTick(ctx, cmd, runStore, args[0], tick)
			}
			return showRun(ctx, cmd, runStore, args[0], jsonOut)
		},
	}

	cmd.Flags().Int("tick", 0, "Print the snapshot for this tick (1-based)")

	return cmd
}

func listRuns(ctx context.Context, cmd *cobra.Command, s *store.SQLiteRunStore, jsonOut bool) error {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded. Run 'tickloop run <trial.yaml>' first.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %3d/%d ticks  %s\n",
			r.ID, r.Name, r.TickCount, r.TickBudget, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, s *store.SQLiteRunStore, id string, jsonOut bool) error {
	meta, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("run not found: %s", id)
	}
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(meta)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run:         %s\n", meta.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Name:        %s\n", meta.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "Created:     %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(cmd.OutOrStdout(), "Ticks:       %d of %d budgeted\n", meta.TickCount, meta.TickBudget)
	return nil
}

func showTick(ctx context.Context, cmd *cobra.Command, s *store.SQLiteRunStore, id string, tick int) error {
	snap, err := s.GetTick(ctx, id, tick)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("tick %d not found in run %s", tick, id)
	}
	// Snapshots are structured records; they are always printed as JSON.
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
