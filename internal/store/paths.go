package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// GlobalTickloopPath returns the path to the global .tickloop directory.
// On Unix: ~/.tickloop
// On Windows: %USERPROFILE%\.tickloop
func GlobalTickloopPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tickloop"), nil
}

// LocalTickloopPath returns the path to the local .tickloop directory
// for the given project root.
func LocalTickloopPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tickloop")
}

// EnsureGlobalTickloopDir creates the global .tickloop directory if it
// doesn't exist. Returns nil if the directory already exists or was
// successfully created.
func EnsureGlobalTickloopDir() error {
	globalPath, err := GlobalTickloopPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(globalPath, 0755); err != nil {
		return fmt.Errorf("failed to create global .tickloop directory: %w", err)
	}

	return nil
}
