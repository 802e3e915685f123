package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// HomeDirName is the per-project state directory.
	HomeDirName = ".dynrouting"
	// ConfigFileName is the config file inside HomeDirName.
	ConfigFileName = "config.yaml"
	// HistoryDBName is the training history database file.
	HistoryDBName = "history.db"
	// HomeEnvVar overrides home directory discovery.
	HomeEnvVar = "DYNROUTING_HOME"
)

// GetHome returns the dynrouting home directory
// Priority order:
//  1. DYNROUTING_HOME environment variable (if set)
//  2. The nearest ancestor of the working directory containing .dynrouting
//  3. .dynrouting in the current working directory (created if missing)
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if root, ok := findProjectRoot(cwd); ok {
		return filepath.Join(root, HomeDirName), nil
	}

	home := filepath.Join(cwd, HomeDirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create dynrouting home directory: %w", err)
	}
	return home, nil
}

// ProjectRoot returns the directory holding the dynrouting home, where the
// config file is looked up.
func ProjectRoot() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Dir(home), nil
}

// findProjectRoot walks up from dir to the first directory containing .dynrouting.
func findProjectRoot(dir string) (string, bool) {
	current := dir
	for {
		info, err := os.Stat(filepath.Join(current, HomeDirName))
		if err == nil && info.IsDir() {
			return current, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// ResolvePath anchors a relative configured path at the project root.
// Paths starting with .dynrouting/ are placed inside the home directory
// itself, so DYNROUTING_HOME relocates them.
func ResolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}

	home, err := GetHome()
	if err != nil {
		return "", err
	}

	if rel, err := filepath.Rel(HomeDirName, path); err == nil && !startsWithDotDot(rel) {
		return filepath.Join(home, rel), nil
	}
	return filepath.Join(filepath.Dir(home), path), nil
}

func startsWithDotDot(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
