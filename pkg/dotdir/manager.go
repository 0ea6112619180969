// Package dotdir manages the .switchyard/ and ~/.switchyard directories that
// hold config.toml and the default SQLite memory database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the switchyard directory.
	dirName = ".switchyard"

	// dbName is the default SQLite memory database inside the directory.
	dbName = "switchyard.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .switchyard/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.switchyard/ dir
//  3. Home ~/.switchyard/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating switchyard directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// SQLitePath returns the memory database path to use. An explicit path wins;
// otherwise the database lives in the resolved directory.
func (m *Manager) SQLitePath(explicit, overrideDir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbName), nil
}

// localDirExists checks whether a .switchyard/ directory exists in the
// current working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
