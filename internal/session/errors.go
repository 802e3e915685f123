package session

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedSessionError reports a structural problem in a raw session record.
// Field carries the record's name for the offending field.
type MalformedSessionError struct {
	Field  string // Offending field, e.g. "trialStimStartFrame"
	Reason string // Human-readable description of the problem
	Err    error  // Underlying error (optional)
}

func newMalformed(field, format string, args ...interface{}) *MalformedSessionError {
	return &MalformedSessionError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface for MalformedSessionError.
func (e *MalformedSessionError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed session")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(": field %s", e.Field))
	}
	sb.WriteString(fmt.Sprintf(": %s", e.Reason))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *MalformedSessionError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is or wraps a MalformedSessionError.
func IsMalformed(err error) bool {
	var me *MalformedSessionError
	return errors.As(err, &me)
}

// MalformedField returns the offending field name when err is a MalformedSessionError.
func MalformedField(err error) (string, bool) {
	var me *MalformedSessionError
	if errors.As(err, &me) {
		return me.Field, true
	}
	return "", false
}
