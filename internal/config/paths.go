package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// EnsureDirectories creates the output and upload directories if they don't exist
func (p PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.UploadDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// RunDir returns the directory holding every artifact of one report run.
func (p PathsConfig) RunDir(runID string) string {
	return filepath.Join(p.OutputDir, runID)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
