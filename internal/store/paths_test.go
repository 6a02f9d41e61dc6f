package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalTickloopPath(t *testing.T) {
	got, err := GlobalTickloopPath()
	if err != nil {
		t.Fatalf("GlobalTickloopPath() error = %v", err)
	}
	// Verify path ends with .tickloop
	if !strings.HasSuffix(got, ".tickloop") {
		t.Errorf("GlobalTickloopPath() = %v, should end with .tickloop", got)
	}
	// Verify path is absolute
	if !filepath.IsAbs(got) {
		t.Errorf("GlobalTickloopPath() = %v, should be absolute path", got)
	}
	// Verify path contains home directory
	homeDir, _ := os.UserHomeDir()
	if !strings.HasPrefix(got, homeDir) {
		t.Errorf("GlobalTickloopPath() = %v, should start with home directory %v", got, homeDir)
	}
}

func TestLocalTickloopPath(t *testing.T) {
	tests := []struct {
		name        string
		projectRoot string
		want        string
	}{
		{
			name:        "unix path",
			projectRoot: "/home/user/project",
			want:        filepath.Join("/home/user/project", ".tickloop"),
		},
		{
			name:        "relative path",
			projectRoot: ".",
			want:        ".tickloop",
		},
		{
			name:        "empty root",
			projectRoot: "",
			want:        ".tickloop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalTickloopPath(tt.projectRoot)
			if got != tt.want {
				t.Errorf("LocalTickloopPath(%q) = %v, want %v", tt.projectRoot, got, tt.want)
			}
		})
	}
}
