package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/google/uuid"
)

// Engine is the transition engine: it starts instances and applies actions to them.
// It holds no mutable state and performs no I/O; persistence is the caller's job.
type Engine struct {
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the generator used for new instance IDs.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithLogger sets the logger used for debug tracing of decisions.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine with UTC wall-clock time and random UUIDs.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates a new instance positioned at the definition's initial state.
func (e *Engine) Start(def *domain.Definition) (*domain.Instance, error) {
	initial, ok := def.InitialState()
	if !ok {
		return nil, &domain.TransitionError{Kind: domain.DefinitionInvalid, DefinitionID: def.ID}
	}

	inst := domain.NewInstance(e.newID(), def.ID, initial.ID, e.now())
	e.logger.Debug("instance started", "instance_id", inst.ID, "definition_id", def.ID, "state", initial.ID)
	return inst, nil
}

// Execute applies the action named actionName (case-insensitive) to inst.
// Checks run in a fixed order and stop at the first failure.
// inst is never modified; on success a new snapshot with one more history entry is returned.
func (e *Engine) Execute(inst *domain.Instance, def *domain.Definition, actionName string) (*domain.Instance, error) {
	reject := func(kind domain.ErrorKind, target string) error {
		e.logger.Debug("action rejected",
			"instance_id", inst.ID,
			"action", actionName,
			"kind", kind,
		)
		return &domain.TransitionError{
			Kind:         kind,
			DefinitionID: def.ID,
			Action:       actionName,
			CurrentState: inst.CurrentStateID,
			TargetState:  target,
		}
	}

	action, ok := def.FindActionByName(actionName)
	if !ok {
		return nil, reject(domain.ActionNotFound, "")
	}
	if !action.Enabled {
		return nil, reject(domain.ActionDisabled, action.ToState)
	}
	// The final-state check is evaluated whether or not the action lists the
	// current state as a source; when both fail, TerminalState wins.
	allowed := action.AllowsFrom(inst.CurrentStateID)
	if current, ok := def.FindState(inst.CurrentStateID); ok && current.IsFinal {
		return nil, reject(domain.TerminalState, action.ToState)
	}
	if !allowed {
		return nil, reject(domain.IllegalTransition, action.ToState)
	}
	if _, ok := def.FindState(action.ToState); !ok {
		return nil, reject(domain.UnknownTargetState, action.ToState)
	}

	now := e.now()
	next := inst.Snapshot()
	previous := next.CurrentStateID
	next.CurrentStateID = action.ToState
	next.LastUpdated = now
	next.History = append(next.History, domain.ActionHistory{
		ActionID:    action.ID,
		ActionName:  action.Name,
		FromStateID: previous,
		ToStateID:   action.ToState,
		ExecutedAt:  now,
	})

	e.logger.Debug("action executed",
		"instance_id", inst.ID,
		"action", action.ID,
		"from", previous,
		"to", action.ToState,
	)
	return next, nil
}

// ValidateActionExecution reports every precondition that would stop actionID
// (matched exactly by ID) from running on inst. It does not modify anything.
func (e *Engine) ValidateActionExecution(inst *domain.Instance, def *domain.Definition, actionID string) domain.ValidationResult {
	result := domain.NewValidationResult()

	action, ok := def.FindActionByID(actionID)
	if !ok {
		result.Addf("Action '%s' not found in workflow definition", actionID)
		return result
	}

	if !action.Enabled {
		result.Addf("Action '%s' is disabled", actionID)
	}
	if !action.AllowsFrom(inst.CurrentStateID) {
		result.Addf("Action '%s' cannot be executed from current state '%s'", actionID, inst.CurrentStateID)
	}
	if current, ok := def.FindState(inst.CurrentStateID); ok && current.IsFinal {
		result.Addf("Cannot execute actions on final state '%s'", inst.CurrentStateID)
	}

	return result
}
