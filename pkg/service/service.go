package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/observability"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

const tracerName = "github.com/aretw0/stateflow/pkg/service"

// Service orchestrates definitions and instances on top of the stores.
// It is safe for concurrent use.
type Service struct {
	defs  ports.DefinitionStore
	insts ports.InstanceStore

	engine    *stateflow.Engine
	hooks     domain.LifecycleHooks
	publisher ports.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger

	mu      sync.Mutex            // guards locks
	locks   map[string]*lockEntry // active per-key locks
	locker  ports.DistributedLocker
	lockTTL time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers callbacks for orchestrator events.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithEngine replaces the default engine, typically to control clock and IDs.
func WithEngine(engine *stateflow.Engine) Option {
	return func(s *Service) {
		s.engine = engine
	}
}

// WithTracer sets the tracer used for operation spans (default: the global provider).
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithPublisher broadcasts instance events after they are persisted.
func WithPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// New creates a Service over the given stores.
func New(defs ports.DefinitionStore, insts ports.InstanceStore, opts ...Option) *Service {
	s := &Service{
		defs:    defs,
		insts:   insts,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = stateflow.New(stateflow.WithLogger(s.logger))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// CreateDefinitionRequest carries the client-supplied part of a definition.
type CreateDefinitionRequest struct {
	Name        string
	Description string
	States      []domain.State
	Actions     []domain.Action
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "stateflow."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		observability.SetError(span, err)
	}
	span.End()
}

// CreateDefinition validates and stores a new definition.
// Names are unique ignoring case; the check and the save run under one lock.
func (s *Service) CreateDefinition(ctx context.Context, req CreateDefinitionRequest) (def *domain.Definition, err error) {
	ctx, span := s.startSpan(ctx, "CreateDefinition", attribute.String("stateflow.definition.name", req.Name))
	defer func() { endSpan(span, err) }()

	err = s.WithLock(ctx, definitionNameLockKey(req.Name), func(ctx context.Context) error {
		exists, err := s.defs.ExistsByName(ctx, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check definition name: %w", err)
		}
		if exists {
			return &domain.DuplicateNameError{Name: req.Name}
		}

		candidate := &domain.Definition{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			States:      req.States,
			Actions:     req.Actions,
			CreatedAt:   s.engine.Now(),
		}

		if result := s.engine.ValidateDefinition(candidate); !result.IsValid {
			return &domain.ValidationError{Result: result}
		}

		if err := s.defs.Save(ctx, candidate); err != nil {
			return fmt.Errorf("failed to save definition: %w", err)
		}
		def = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(observability.DefinitionIDKey.String(def.ID))
	s.logger.Info("Definition created", "definition_id", def.ID, "name", def.Name)
	if s.hooks.OnDefinitionCreated != nil {
		s.hooks.OnDefinitionCreated(ctx, &domain.DefinitionEvent{
			EventBase:    domain.EventBase{Timestamp: def.CreatedAt, Type: domain.EventDefinitionCreated},
			DefinitionID: def.ID,
			Name:         def.Name,
		})
	}
	return def, nil
}

// GetDefinition returns one definition or domain.ErrDefinitionNotFound.
func (s *Service) GetDefinition(ctx context.Context, id string) (*domain.Definition, error) {
	return s.defs.Load(ctx, id)
}

// ListDefinitions returns every definition, oldest first.
func (s *Service) ListDefinitions(ctx context.Context) ([]*domain.Definition, error) {
	return s.defs.List(ctx)
}

// StartInstance creates and stores an instance of the definition at its initial state.
func (s *Service) StartInstance(ctx context.Context, definitionID string) (inst *domain.Instance, err error) {
	ctx, span := s.startSpan(ctx, "StartInstance", observability.DefinitionIDKey.String(definitionID))
	defer func() { endSpan(span, err) }()

	def, err := s.defs.Load(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	inst, err = s.engine.StartInstance(def)
	if err != nil {
		return nil, err
	}

	if err := s.insts.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to save instance: %w", err)
	}

	span.SetAttributes(observability.InstanceIDKey.String(inst.ID))
	s.logger.Info("Instance started", "instance_id", inst.ID, "definition_id", def.ID, "state", inst.CurrentStateID)

	event := &domain.InstanceEvent{
		EventBase:    domain.EventBase{Timestamp: inst.CreatedAt, Type: domain.EventInstanceStarted},
		InstanceID:   inst.ID,
		DefinitionID: def.ID,
		ToStateID:    inst.CurrentStateID,
		Diff:         domain.Diff(nil, inst),
	}
	if s.hooks.OnInstanceStarted != nil {
		s.hooks.OnInstanceStarted(ctx, event)
	}
	s.publish(ctx, event)
	return inst, nil
}

// GetInstance returns one instance or domain.ErrInstanceNotFound.
func (s *Service) GetInstance(ctx context.Context, id string) (*domain.Instance, error) {
	return s.insts.Load(ctx, id)
}

// ListInstances returns every instance, oldest first.
func (s *Service) ListInstances(ctx context.Context) ([]*domain.Instance, error) {
	return s.insts.List(ctx)
}

// ListInstancesByDefinition returns the instances of one definition, oldest first.
func (s *Service) ListInstancesByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	return s.insts.ListByDefinition(ctx, definitionID)
}

// ExecuteAction applies actionName to the instance and stores the result.
// Concurrent calls on the same instance are serialized; none is lost.
func (s *Service) ExecuteAction(ctx context.Context, instanceID, actionName string) (next *domain.Instance, err error) {
	ctx, span := s.startSpan(ctx, "ExecuteAction",
		observability.InstanceIDKey.String(instanceID),
		observability.ActionKey.String(actionName),
	)
	defer func() { endSpan(span, err) }()

	actionName, err = sanitizeSelector(actionName)
	if err != nil {
		return nil, err
	}

	err = s.WithLock(ctx, instanceLockKey(instanceID), func(ctx context.Context) error {
		inst, err := s.insts.Load(ctx, instanceID)
		if err != nil {
			return err
		}
		def, err := s.defs.Load(ctx, inst.DefinitionID)
		if err != nil {
			return err
		}

		next, err = s.engine.ExecuteAction(inst, def, actionName)
		if err != nil {
			s.rejected(ctx, inst, actionName, err)
			return err
		}

		if err := s.insts.Save(ctx, next); err != nil {
			next = nil
			return fmt.Errorf("failed to save instance: %w", err)
		}

		last := next.History[len(next.History)-1]
		s.logger.Info("Action executed",
			"instance_id", next.ID,
			"action", last.ActionID,
			"from", last.FromStateID,
			"to", last.ToStateID,
		)

		event := &domain.InstanceEvent{
			EventBase:    domain.EventBase{Timestamp: last.ExecutedAt, Type: domain.EventActionExecuted},
			InstanceID:   next.ID,
			DefinitionID: next.DefinitionID,
			Action:       last.ActionID,
			FromStateID:  last.FromStateID,
			ToStateID:    last.ToStateID,
			Diff:         domain.Diff(inst, next),
		}
		// Fired under the lock so observers see one instance's events in order.
		if s.hooks.OnActionExecuted != nil {
			s.hooks.OnActionExecuted(ctx, event)
		}
		s.publish(ctx, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) rejected(ctx context.Context, inst *domain.Instance, actionName string, err error) {
	event := &domain.InstanceEvent{
		EventBase:    domain.EventBase{Timestamp: s.engine.Now(), Type: domain.EventActionRejected},
		InstanceID:   inst.ID,
		DefinitionID: inst.DefinitionID,
		Action:       actionName,
		FromStateID:  inst.CurrentStateID,
		Error:        err.Error(),
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		event.Kind = te.Kind
	}

	s.logger.Debug("Action rejected", "instance_id", inst.ID, "action", actionName, "err", err)
	if s.hooks.OnActionRejected != nil {
		s.hooks.OnActionRejected(ctx, event)
	}
	s.publish(ctx, event)
}

// ValidateActionExecution reports every precondition that would prevent actionID
// from running on the instance. It does not modify anything.
func (s *Service) ValidateActionExecution(ctx context.Context, instanceID, actionID string) (domain.ValidationResult, error) {
	inst, err := s.insts.Load(ctx, instanceID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	def, err := s.defs.Load(ctx, inst.DefinitionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return s.engine.ValidateActionExecution(inst, def, actionID), nil
}

// ValidateDefinition checks a definition without storing it.
func (s *Service) ValidateDefinition(def *domain.Definition) domain.ValidationResult {
	return s.engine.ValidateDefinition(def)
}

func (s *Service) publish(ctx context.Context, event *domain.InstanceEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", event.Type, "instance_id", event.InstanceID, "err", err)
	}
}
