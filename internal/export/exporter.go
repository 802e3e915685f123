// Package export serializes analysis results for downstream reporting tools.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/filelock"
)

// Exporter converts an analysis result to bytes.
type Exporter interface {
	Export(result *analysis.Result) ([]byte, error)
	Extension() string
}

// Format names an export format.
type Format string

const (
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatTrialsCSV Format = "trials-csv"
)

// ValidFormats lists the accepted format names.
var ValidFormats = []Format{FormatJSON, FormatCSV, FormatTrialsCSV}

// New returns the exporter for a format name.
func New(format Format, pretty bool) (Exporter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		return &JSONExporter{Pretty: pretty}, nil
	case FormatCSV:
		return &CSVExporter{}, nil
	case FormatTrialsCSV:
		return &TrialsCSVExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (valid: json, csv, trials-csv)", format)
	}
}

// WriteFile exports result and writes it to path under a file lock.
func WriteFile(path string, exp Exporter, result *analysis.Result) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	data, err := exp.Export(result)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// DefaultPath names the export of result inside dir by its session key.
func DefaultPath(dir string, exp Exporter, result *analysis.Result) string {
	return filepath.Join(dir, result.Summary.SessionKey()+exp.Extension())
}
