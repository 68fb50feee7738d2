// Package apperror defines the error kinds surfaced to users: field-level
// validation failures, failed remote calls, and missing rows.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound marks a lookup or mutation that matched no row owned by the
// current user.
var ErrNotFound = errors.New("not found")

// FieldError is a single validation message bound to a form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is an ordered list of field messages. It is returned before
// any storage call is made.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the first message for field, or "".
func (v ValidationErrors) Field(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Map returns the first message per field, for template lookups.
func (v ValidationErrors) Map() map[string]string {
	m := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := m[fe.Field]; !ok {
			m[fe.Field] = fe.Message
		}
	}
	return m
}

// RemoteError wraps a failed storage call with the title shown to the user,
// e.g. "Error creating habit".
type RemoteError struct {
	Action string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Remote wraps err as a RemoteError. A nil err stays nil.
func Remote(action string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Action: action, Err: err}
}

// UserMessage returns the text to show for err in a notification.
func UserMessage(err error) string {
	var ve ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Message
	}
	var re *RemoteError
	if errors.As(err, &re) {
		if errors.Is(re.Err, ErrNotFound) {
			return re.Action + ": not found"
		}
		return re.Action
	}
	if errors.Is(err, ErrNotFound) {
		return "Not found"
	}
	return "Something went wrong"
}

// FromValidator converts validator errors into ValidationErrors using the
// messages table; unknown keys fall back to "<field> is invalid". The key is
// "Struct.Field.tag" as reported by StructNamespace.
func FromValidator(err error, messages map[string]string, jsonName func(field string) string) ValidationErrors {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return nil
	}
	out := make(ValidationErrors, 0, len(vErrs))
	for _, e := range vErrs {
		ns := e.StructNamespace()
		// Slice elements report as "Struct.Field[2]"; drop the index.
		if i := strings.IndexByte(ns, '['); i >= 0 {
			ns = ns[:i]
		}
		key := ns + "." + e.Tag()
		msg, ok := messages[key]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", e.StructField())
		}
		field := e.StructField()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		if jsonName != nil {
			field = jsonName(field)
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}
