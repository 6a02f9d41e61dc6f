package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tick-loop/internal/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize tickloop run tracking in current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			globalInit, _ := cmd.Flags().GetBool("global")

			var tickloopDir string
			if globalInit {
				if err := store.EnsureGlobalTickloopDir(); err != nil {
					return fmt.Errorf("failed to initialize global directory: %w", err)
				}
				var err error
				tickloopDir, err = store.GlobalTickloopPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
			} else {
				tickloopDir = store.LocalTickloopPath(root)
			}

			if err := os.MkdirAll(tickloopDir, 0755); err != nil {
				return fmt.Errorf("failed to create .tickloop directory: %w", err)
			}

			// Create manifest.yaml
			manifestPath := filepath.Join(tickloopDir, "manifest.yaml")
			if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
				manifest := `# Tickloop Manifest
version: "1.0"
created: %s

# Simulation runs are stored in runs.db in this directory
# Run 'tickloop run <trial.yaml>' to execute a trial
# Run 'tickloop show' to list recorded runs
`
				content := fmt.Sprintf(manifest, time.Now().Format(time.RFC3339))
				if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
					return fmt.Errorf("failed to create manifest.yaml: %w", err)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				result := map[string]string{
					"status": "initialized",
					"path":   tickloopDir,
				}
				if globalInit {
					result["scope"] = "global"
				}
				json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized tickloop tracking in %s\n", tickloopDir)
			}
			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Initialize the global ~/.tickloop directory")

	return cmd
}

// ensureInitialized fails with a hint when the local .tickloop directory does
// not exist yet.
func ensureInitialized(root string) error {
	tickloopDir := store.LocalTickloopPath(root)
	if _, err := os.Stat(tickloopDir); os.IsNotExist(err) {
		return fmt.Errorf(".tickloop not initialized. Run 'tickloop init' first")
	}
	return nil
}
