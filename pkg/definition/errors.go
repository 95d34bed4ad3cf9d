package definition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// FieldError is a single document shape failure.
type FieldError struct {
	Field  string // dotted path, e.g. "states.0.id"
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SchemaError aggregates every shape failure of a document.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for i, fe := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, fe.Error())
	}
	return b.String()
}

// Messages returns the failures as "field: reason" strings.
func (e *SchemaError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe.Error()
	}
	return out
}
