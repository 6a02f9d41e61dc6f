package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/config"
	"github.com/nvandessel/tick-loop/internal/engine"
	"github.com/nvandessel/tick-loop/internal/logging"
	"github.com/nvandessel/tick-loop/internal/scenario"
	"github.com/nvandessel/tick-loop/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trial.yaml>",
		Short: "Execute a trial and record its tick history",
		Long: `Execute a trial and record its tick history.

The trial file describes the initial world: recruiter anchors, identities,
field seeds, pattern placements, and scheduled detection probes. The engine
runs for the configured tick budget and every tick snapshot is appended to
the local run store.

Examples:
  tickloop run trial.yaml
  tickloop run trial.yaml --config run.yaml --budget 50
  tickloop run trial.yaml --name coexistence-sweep --capture-field`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			budget, _ := cmd.Flags().GetInt("budget")
			name, _ := cmd.Flags().GetString("name")
			captureField, _ := cmd.Flags().GetBool("capture-field")

			if err := ensureInitialized(root); err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if budget > 0 {
				cfg.TickBudget = budget
			}
			if name != "" {
				cfg.Name = name
			}
			if captureField {
				cfg.CaptureField = true
			}

			trial, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}

			log := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			eng, err := engine.New(cfg, log)
			if err != nil {
				return err
			}

			runStore, err := store.NewSQLiteRunStore(root)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			defer runStore.Close()

			// Cancel cleanly on SIGINT/SIGTERM; the unit of interruption
			// is a whole tick.
			ctx, stop := withShutdownSignals(context.Background())
			defer stop()

			trace := logging.NewTraceLogger(store.LocalTickloopPath(root), cfg.Logging.Level)
			defer trace.Close()

			history, err := trial.Run(ctx, eng, cfg.TickBudget)
			if err != nil {
				return fmt.Errorf("run aborted after %d ticks: %w", len(history), err)
			}

			runID, err := nextRunID(ctx, runStore)
			if err != nil {
				return err
			}
			cfgJSON, err := json.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if err := runStore.CreateRun(ctx, store.RunMeta{
				ID:         runID,
				Name:       cfg.Name,
				TickBudget: cfg.TickBudget,
				Config:     cfgJSON,
			}); err != nil {
				return err
			}
			eventCount := 0
			for _, snap := range history {
				if err := runStore.AppendTick(ctx, runID, snap); err != nil {
					return err
				}
				eventCount += len(snap.Events)
				trace.Log(map[string]any{
					"event":      "tick_complete",
					"run_id":     runID,
					"tick":       snap.Tick,
					"identities": len(snap.Identities),
					"events":     len(snap.Events),
					"echo_total": snap.Echo.Total,
				})
			}
			if err := runStore.Sync(ctx); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id":     runID,
					"trial":      trial.Name,
					"ticks":      len(history),
					"identities": len(trial.Identities),
					"events":     eventCount,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s complete: trial %q, %d ticks, %d detection events\n",
				runID, trial.Name, len(history), eventCount)
			if len(history) > 0 {
				final := history[len(history)-1]
				for _, id := range final.Identities {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-10s %-12s (%d,%d,%d)\n",
						id.ID, id.Ancestry, id.Status, id.Position.X, id.Position.Y, id.Position.Z)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("config", "", "Path to a run config YAML file")
	cmd.Flags().Int("budget", 0, "Override the configured tick budget")
	cmd.Flags().String("name", "", "Override the run name")
	cmd.Flags().Bool("capture-field", false, "Include the full reinforcement field in snapshots")

	return cmd
}

// nextRunID allocates the next sequential run identifier. Runs are created
// one at a time through the CLI, so counting existing runs is sufficient.
func nextRunID(ctx context.Context, s *store.SQLiteRunStore) (string, error) {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("run-%06d", len(runs)+1), nil
}
