package middleware

import (
	"context"
	"errors"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/observability"
	"github.com/aretw0/stateflow/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	foundKey = attribute.Key("stateflow.store.found")
	countKey = attribute.Key("stateflow.store.count")
)

// TraceDefinitions records a client span around every DefinitionStore call.
func TraceDefinitions(tracer trace.Tracer) DefinitionMiddleware {
	return func(next ports.DefinitionStore) ports.DefinitionStore {
		return &tracedDefinitions{next: next, tracer: tracer}
	}
}

// TraceInstances records a client span around every InstanceStore call.
func TraceInstances(tracer trace.Tracer) InstanceMiddleware {
	return func(next ports.InstanceStore) ports.InstanceStore {
		return &tracedInstances{next: next, tracer: tracer}
	}
}

func start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "store."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// finish ends span. Not-found lookups are an expected outcome, not a span error.
func finish(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDefinitionNotFound), errors.Is(err, domain.ErrInstanceNotFound):
		span.SetAttributes(foundKey.Bool(false))
	default:
		observability.SetError(span, err)
	}
	span.End()
}

type tracedDefinitions struct {
	next   ports.DefinitionStore
	tracer trace.Tracer
}

func (t *tracedDefinitions) Save(ctx context.Context, def *domain.Definition) error {
	ctx, span := start(ctx, t.tracer, "definitions.Save", observability.DefinitionIDKey.String(def.ID))
	err := t.next.Save(ctx, def)
	finish(span, err)
	return err
}

func (t *tracedDefinitions) Load(ctx context.Context, id string) (*domain.Definition, error) {
	ctx, span := start(ctx, t.tracer, "definitions.Load", observability.DefinitionIDKey.String(id))
	def, err := t.next.Load(ctx, id)
	finish(span, err)
	return def, err
}

func (t *tracedDefinitions) List(ctx context.Context) ([]*domain.Definition, error) {
	ctx, span := start(ctx, t.tracer, "definitions.List")
	defs, err := t.next.List(ctx)
	span.SetAttributes(countKey.Int(len(defs)))
	finish(span, err)
	return defs, err
}

func (t *tracedDefinitions) ExistsByName(ctx context.Context, name string) (bool, error) {
	ctx, span := start(ctx, t.tracer, "definitions.ExistsByName")
	exists, err := t.next.ExistsByName(ctx, name)
	span.SetAttributes(foundKey.Bool(exists))
	finish(span, err)
	return exists, err
}

type tracedInstances struct {
	next   ports.InstanceStore
	tracer trace.Tracer
}

func (t *tracedInstances) Save(ctx context.Context, inst *domain.Instance) error {
	ctx, span := start(ctx, t.tracer, "instances.Save",
		observability.InstanceIDKey.String(inst.ID),
		observability.DefinitionIDKey.String(inst.DefinitionID),
	)
	err := t.next.Save(ctx, inst)
	finish(span, err)
	return err
}

func (t *tracedInstances) Load(ctx context.Context, id string) (*domain.Instance, error) {
	ctx, span := start(ctx, t.tracer, "instances.Load", observability.InstanceIDKey.String(id))
	inst, err := t.next.Load(ctx, id)
	finish(span, err)
	return inst, err
}

func (t *tracedInstances) List(ctx context.Context) ([]*domain.Instance, error) {
	ctx, span := start(ctx, t.tracer, "instances.List")
	insts, err := t.next.List(ctx)
	span.SetAttributes(countKey.Int(len(insts)))
	finish(span, err)
	return insts, err
}

func (t *tracedInstances) ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	ctx, span := start(ctx, t.tracer, "instances.ListByDefinition", observability.DefinitionIDKey.String(definitionID))
	insts, err := t.next.ListByDefinition(ctx, definitionID)
	span.SetAttributes(countKey.Int(len(insts)))
	finish(span, err)
	return insts, err
}
