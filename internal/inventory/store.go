package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	appName      = "kasascan"
	baselineFile = "baseline.json"
	snapshotFile = "devices.csv"
	scanLogFile  = "scan_log.csv"
)

// Store owns the on-disk artifacts: the baseline document, the latest
// snapshot, and the append-only scan log. Construct it once per process
// run with an explicit data directory and do not mutate it afterwards.
type Store struct {
	dataDir string

	// Serializes file writes within the process.
	mu sync.Mutex
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// DefaultDataDir returns the OS-appropriate data directory for the
// application. This follows platform conventions:
//   - Linux: $XDG_DATA_HOME/kasascan or $HOME/.local/share/kasascan
//   - macOS: $HOME/.local/share/kasascan (following XDG convention)
//   - Windows: %LOCALAPPDATA%\kasascan
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			return filepath.Join(userProfile, "AppData", "Local", appName), nil
		}
		return filepath.Join(localAppData, appName), nil

	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".local", "share", appName), nil
	}
}

// DataDir returns the directory the store writes into.
func (s *Store) DataDir() string { return s.dataDir }

// BaselinePath returns the full path of the baseline document.
func (s *Store) BaselinePath() string { return filepath.Join(s.dataDir, baselineFile) }

// SnapshotPath returns the full path of the latest-scan snapshot.
func (s *Store) SnapshotPath() string { return filepath.Join(s.dataDir, snapshotFile) }

// ScanLogPath returns the full path of the append-only scan log.
func (s *Store) ScanLogPath() string { return filepath.Join(s.dataDir, scanLogFile) }

// ensureDataDir creates the data directory with user-only permissions
// if it doesn't exist.
func (s *Store) ensureDataDir() error {
	if err := os.MkdirAll(s.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to path via a temporary file and rename,
// so a crash never leaves a partially written artifact.
func (s *Store) writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
