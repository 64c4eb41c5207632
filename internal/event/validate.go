package event

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports a malformed event. The reducer drops such events;
// the pre-persist validator rejects them.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks e against the schema: a known variant, a timestamp,
// required entity ids, closed enums, non-negative numbers and a 1..5 result.
func Validate(e Event) error {
	if e.Payload == nil {
		return &ValidationError{Field: "type", Reason: "unknown event type"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "required"}
	}

	if err := validate.Struct(e.Payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			reason := "must satisfy " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &ValidationError{Field: fe.Field(), Reason: reason}
		}
		return &ValidationError{Field: "event", Reason: err.Error()}
	}
	return nil
}

// IsValid reports whether e passes Validate.
func IsValid(e Event) bool {
	return Validate(e) == nil
}
