package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/config"
	"github.com/nvandessel/tick-loop/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run configuration and optional trial file",
		Long: `Validate a run configuration and optional trial file.

This command checks:
  - Parameter ranges (phase tolerance, decay factor, connectivity, ...)
  - Lattice dimensions and tick budget
  - Trial placements (phase ranges, pattern names, probe schedule)

Examples:
  tickloop validate                          # Validate defaults + env overrides
  tickloop validate --config run.yaml        # Validate a config file
  tickloop validate --trial trial.yaml       # Validate a trial against the config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			trialPath, _ := cmd.Flags().GetString("trial")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}

			var trial *scenario.Trial
			if trialPath != "" {
				trial, err = scenario.LoadFile(trialPath)
				if err != nil {
					return fmt.Errorf("trial invalid: %w", err)
				}
			}

			if jsonOut {
				result := map[string]any{
					"status":      "valid",
					"config_name": cfg.Name,
					"tick_budget": cfg.TickBudget,
				}
				if trial != nil {
					result["trial"] = trial.Name
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config %q valid (%dx%dx%d lattice, %d ticks)\n",
				cfg.Name, cfg.Lattice.Lx, cfg.Lattice.Ly, cfg.Lattice.Lz, cfg.TickBudget)
			if trial != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Trial %q valid (%d anchors, %d identities)\n",
					trial.Name, len(trial.Anchors), len(trial.Identities))
			}
			return nil
		},
	}

	cmd.Flags().String("config", "", "Path to a run config YAML file")
	cmd.Flags().String("trial", "", "Path to a trial YAML file")

	return cmd
}
