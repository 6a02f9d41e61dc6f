package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/snapshot"
	"github.com/nvandessel/tick-loop/internal/store"
)

// timelineEntry is one identity's state at one tick, with any mutations the
// tick applied to it.
type timelineEntry struct {
	Tick      int                       `json:"tick"`
	Ancestry  string                    `json:"ancestry"`
	Theta     float64                   `json:"theta"`
	Status    identity.Status           `json:"status"`
	Position  string                    `json:"position"`
	Mutations []identity.MutationRecord `json:"mutations,omitempty"`
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Reconstruct an identity's timeline from a recorded run",
		Long: `Reconstruct an identity's timeline from a recorded run.

Walks the run's tick history and the mutation records inside its detection
events, producing a per-tick trace of ancestry, phase, status, and position
for one identity. This answers "why does this identity carry that ancestry"
without re-running the simulation.

Examples:
  tickloop replay run-000003 --identity idn-000002
  tickloop replay run-000003 --identity idn-000002 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			identityID, _ := cmd.Flags().GetString("identity")

			if identityID == "" {
				return fmt.Errorf("--identity is required")
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

			timeline := buildTimeline(history, identityID)
			if len(timeline) == 0 {
				return fmt.Errorf("identity %s does not appear in run %s", identityID, args[0])
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id":   args[0],
					"identity": identityID,
					"timeline": timeline,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Timeline for %s in %s:\n", identityID, args[0])
			for _, e := range timeline {
				fmt.Fprintf(cmd.OutOrStdout(), "  tick %3d  %-12s theta=%.4f  %-12s at %s\n",
					e.Tick, e.Ancestry, e.Theta, e.Status, e.Position)
				for _, m := range e.Mutations {
					fmt.Fprintf(cmd.OutOrStdout(), "            %s: %q -> %q (event %s)\n",
						m.Kind, m.Before, m.After, m.EventID)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("identity", "", "Identity ID to trace")

	return cmd
}

// buildTimeline extracts one identity's per-tick states and attaches the
// mutation records of any detection event that touched it that tick.
func buildTimeline(history []snapshot.Tick, identityID string) []timelineEntry {
	var out []timelineEntry
	for _, snap := range history {
		for _, id := range snap.Identities {
			if id.ID != identityID {
				continue
			}
			entry := timelineEntry{
				Tick:     snap.Tick,
				Ancestry: id.Ancestry,
				Theta:    id.Theta,
				Status:   id.Status,
				Position: id.Position.String(),
			}
			// Mutation records do not name their identity; an event's
			// records are matched back by the post-tick value they left
			// behind on one of the event's affected identities.
			for _, ev := range snap.Events {
				if !contains(ev.AffectedIDs, identityID) {
					continue
				}
				for _, m := range ev.Mutations {
					if m.After == id.Ancestry || m.After == id.ModuleTag {
						entry.Mutations = append(entry.Mutations, m)
					}
				}
			}
			out = append(out, entry)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}
