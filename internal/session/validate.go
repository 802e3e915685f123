package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/harrison/dynrouting/internal/models"
)

// rawValidate checks the required-field tags on models.RawSession.
// Field names are reported by their record (json) name.
var rawValidate *validator.Validate

func init() {
	rawValidate = validator.New()
	rawValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateRequired returns a MalformedSessionError for the first missing or
// mis-sized required field.
func validateRequired(raw *models.RawSession) error {
	if raw == nil {
		return newMalformed("", "session record is nil")
	}

	err := rawValidate.Struct(raw)
	if err == nil {
		return validateQuiescentFrames(raw)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &MalformedSessionError{Field: fe.Field(), Reason: describeTag(fe)}
	}

	return &MalformedSessionError{Reason: "validation failed", Err: err}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "len":
		return fmt.Sprintf("must have exactly %s entries", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// validateQuiescentFrames accepts either the current or the legacy field name.
func validateQuiescentFrames(raw *models.RawSession) error {
	if raw.QuiescentViolationFrames == nil && raw.QuiescentMoveFrames == nil {
		return newMalformed("quiescentViolationFrames", "required field missing")
	}
	return nil
}
