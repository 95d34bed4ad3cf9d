package stateflow

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/internal/validator"
	"github.com/aretw0/stateflow/pkg/domain"
)

// Engine is the high-level entry point for the stateflow library.
// It wraps the internal runtime and validator behind a small API.
type Engine struct {
	runtime *runtime.Engine
	clock   func() time.Time
	idGen   func() string
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the time source for instance and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithIDGenerator sets the generator for new instance IDs (default: random UUID).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.idGen = gen
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	rtOpts := []runtime.EngineOption{runtime.WithLogger(eng.logger)}
	if eng.clock != nil {
		rtOpts = append(rtOpts, runtime.WithClock(eng.clock))
	}
	if eng.idGen != nil {
		rtOpts = append(rtOpts, runtime.WithIDGenerator(eng.idGen))
	}
	eng.runtime = runtime.NewEngine(rtOpts...)

	return eng
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now().UTC()
}

// ValidateDefinition checks the structural well-formedness of def.
func (e *Engine) ValidateDefinition(def *domain.Definition) domain.ValidationResult {
	return validator.ValidateDefinition(def)
}

// StartInstance creates an instance of def at its initial state.
func (e *Engine) StartInstance(def *domain.Definition) (*domain.Instance, error) {
	return e.runtime.Start(def)
}

// ExecuteAction applies the action named actionName (case-insensitive) to inst and returns
// the resulting snapshot. inst itself is never modified.
func (e *Engine) ExecuteAction(inst *domain.Instance, def *domain.Definition, actionName string) (*domain.Instance, error) {
	return e.runtime.Execute(inst, def, actionName)
}

// ValidateActionExecution lists every precondition preventing actionID from running on inst.
func (e *Engine) ValidateActionExecution(inst *domain.Instance, def *domain.Definition, actionID string) domain.ValidationResult {
	return e.runtime.ValidateActionExecution(inst, def, actionID)
}

var defaultEngine = New()

// ValidateDefinition checks def using a default engine.
func ValidateDefinition(def *domain.Definition) domain.ValidationResult {
	return defaultEngine.ValidateDefinition(def)
}

// StartInstance starts an instance of def using a default engine.
func StartInstance(def *domain.Definition) (*domain.Instance, error) {
	return defaultEngine.StartInstance(def)
}

// ExecuteAction executes actionName on inst using a default engine.
func ExecuteAction(inst *domain.Instance, def *domain.Definition, actionName string) (*domain.Instance, error) {
	return defaultEngine.ExecuteAction(inst, def, actionName)
}

// ValidateActionExecution pre-checks actionID on inst using a default engine.
func ValidateActionExecution(inst *domain.Instance, def *domain.Definition, actionID string) domain.ValidationResult {
	return defaultEngine.ValidateActionExecution(inst, def, actionID)
}
