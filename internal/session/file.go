package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrison/dynrouting/internal/models"
)

// Format identifies the encoding of an exported session record.
type Format string

const (
	// FormatJSON is a JSON session record (.json).
	FormatJSON Format = "json"
	// FormatYAML is a YAML session record (.yaml, .yml).
	FormatYAML Format = "yaml"
)

// subjectPattern matches rig file names like DynamicRouting1_366122_20230414_120213.json.
var subjectPattern = regexp.MustCompile(`.*_([0-9]{6})_`)

// FormatFromPath picks the record format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported session file extension %q", filepath.Ext(path))
	}
}

// IsSessionFile reports whether path has a supported session record extension.
func IsSessionFile(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// ReadFile reads and decodes a session record.
// The subject name falls back to the 6-digit id in the file name.
func ReadFile(path string) (*models.RawSession, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	raw, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	if raw.SubjectName == "" {
		raw.SubjectName = SubjectFromPath(path)
	}

	return raw, nil
}

// Decode parses a session record in the given format.
func Decode(data []byte, format Format) (*models.RawSession, error) {
	raw := &models.RawSession{}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, raw)
	default:
		return nil, fmt.Errorf("unknown session format %q", format)
	}
	if err != nil {
		return nil, &MalformedSessionError{Reason: fmt.Sprintf("decode %s record", format), Err: err}
	}

	return raw, nil
}

// SubjectFromPath extracts the 6-digit subject id from a rig file name.
// Returns an empty string when the name does not follow the rig convention.
func SubjectFromPath(path string) string {
	m := subjectPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return m[1]
}
