// Package dotdir manages the .lightwiki/ and ~/.lightwiki directories, which
// hold config.toml, the default SQLite pages database and file graph
// snapshots.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the lightwiki directory.
	dirName = ".lightwiki"

	// DatabaseFile is the default SQLite pages database name.
	DatabaseFile = "lightwiki.sqlite"

	// GraphFile is the default file graph snapshot name.
	GraphFile = "graph.json"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .lightwiki/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.lightwiki/ dir
//  3. Home ~/.lightwiki/ dir
//  4. If none found, attempt to create ~/.lightwiki/ dir
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
		return "", fmt.Errorf("creating lightwiki directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath returns configured when set, otherwise the default SQLite
// pages database inside the resolved directory.
func (m *Manager) DatabasePath(overrideDir, configured string) (string, error) {
	return m.fileIn(overrideDir, configured, DatabaseFile)
}

// GraphPath returns configured when set, otherwise the default graph
// snapshot file inside the resolved directory.
func (m *Manager) GraphPath(overrideDir, configured string) (string, error) {
	return m.fileIn(overrideDir, configured, GraphFile)
}

func (m *Manager) fileIn(overrideDir, configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// localDirExists checks whether a .lightwiki/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
