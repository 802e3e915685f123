package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanOptions configures a search for session files.
type ScanOptions struct {
	// Pattern is a glob matched against the base name; empty matches all.
	Pattern string
	// Recursive descends into subdirectories, skipping hidden ones.
	Recursive bool
}

// ScanResult holds the session files found by ScanDirectory.
type ScanResult struct {
	Files  []string // Absolute paths, sorted
	Errors []error  // Unreadable entries; the scan continues past them
}

// ScanDirectory lists session record files under dir.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
	}

	result := &ScanResult{}
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSessionFile(path) {
			return nil
		}
		if opts.Pattern != "" {
			if ok, _ := filepath.Match(opts.Pattern, d.Name()); !ok {
				return nil
			}
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// ExpandPaths replaces each directory argument with the session files it
// contains and keeps file arguments as given, in argument order.
func ExpandPaths(args []string, opts ScanOptions) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the analysis that reads them.
			paths = append(paths, arg)
			continue
		}
		result, err := ScanDirectory(arg, opts)
		if err != nil {
			return nil, err
		}
		paths = append(paths, result.Files...)
	}
	return paths, nil
}
