package domain

import (
	"errors"
	"fmt"
)

// Messages in this file are returned verbatim to API clients, hence the capitalization.

// ErrDefinitionNotFound is returned when a definition ID cannot be found in the store.
var ErrDefinitionNotFound = errors.New("Workflow definition not found")

// ErrInstanceNotFound is returned when an instance ID cannot be found in the store.
var ErrInstanceNotFound = errors.New("Workflow instance not found")

// ErrDuplicateName matches a DuplicateNameError.
var ErrDuplicateName = errors.New("duplicate workflow definition name")

// ErrValidationFailed matches a ValidationError.
var ErrValidationFailed = errors.New("Validation failed")

// Transition error sentinels, one per ErrorKind.
var (
	ErrActionNotFound     = errors.New("action not found")
	ErrActionDisabled     = errors.New("action disabled")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrTerminalState      = errors.New("terminal state")
	ErrUnknownTargetState = errors.New("unknown target state")
	ErrDefinitionInvalid  = errors.New("definition invalid")
)

// ErrorKind classifies a rejected transition.
type ErrorKind string

const (
	ActionNotFound     ErrorKind = "ActionNotFound"
	ActionDisabled     ErrorKind = "ActionDisabled"
	IllegalTransition  ErrorKind = "IllegalTransition"
	TerminalState      ErrorKind = "TerminalState"
	UnknownTargetState ErrorKind = "UnknownTargetState"
	DefinitionInvalid  ErrorKind = "DefinitionInvalid"
)

var kindSentinels = map[ErrorKind]error{
	ActionNotFound:     ErrActionNotFound,
	ActionDisabled:     ErrActionDisabled,
	IllegalTransition:  ErrIllegalTransition,
	TerminalState:      ErrTerminalState,
	UnknownTargetState: ErrUnknownTargetState,
	DefinitionInvalid:  ErrDefinitionInvalid,
}

// TransitionError is a deterministic rejection of a start or execute request.
// It carries the identifiers involved so the message can be rebuilt without context.
type TransitionError struct {
	Kind         ErrorKind
	DefinitionID string
	Action       string // selector as given by the caller (name or ID)
	CurrentState string
	TargetState  string
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ActionNotFound:
		return fmt.Sprintf("Action '%s' not found in workflow definition", e.Action)
	case ActionDisabled:
		return fmt.Sprintf("Action '%s' is currently disabled", e.Action)
	case IllegalTransition:
		return fmt.Sprintf("Action '%s' cannot be executed from current state '%s'", e.Action, e.CurrentState)
	case TerminalState:
		return fmt.Sprintf("Cannot execute actions on final state '%s'", e.CurrentState)
	case UnknownTargetState:
		return fmt.Sprintf("Action '%s' references unknown target state '%s'", e.Action, e.TargetState)
	case DefinitionInvalid:
		return "No initial state found in workflow definition"
	default:
		return fmt.Sprintf("transition rejected: %s", e.Kind)
	}
}

// Is makes errors.Is(err, ErrActionDisabled) and friends work.
func (e *TransitionError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// DuplicateNameError is returned when a definition with the same name (ignoring case) exists.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("Workflow definition with name '%s' already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// ValidationError wraps a failed ValidationResult.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// IsClientError reports whether err is a deterministic rejection of the request
// (as opposed to a storage or infrastructure failure).
func IsClientError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrValidationFailed)
}
