package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDefinitionCreated EventType = "definition_created"
	EventInstanceStarted   EventType = "instance_started"
	EventActionExecuted    EventType = "action_executed"
	EventActionRejected    EventType = "action_rejected"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// DefinitionEvent is emitted when a definition is accepted.
type DefinitionEvent struct {
	EventBase
	DefinitionID string `json:"definitionId"`
	Name         string `json:"name"`
}

// InstanceEvent is emitted when an instance starts or an action is executed or rejected.
type InstanceEvent struct {
	EventBase
	InstanceID   string        `json:"instanceId"`
	DefinitionID string        `json:"definitionId"`
	Action       string        `json:"action,omitempty"`
	FromStateID  string        `json:"fromStateId,omitempty"`
	ToStateID    string        `json:"toStateId,omitempty"`
	Diff         *InstanceDiff `json:"diff,omitempty"`
	Kind         ErrorKind     `json:"kind,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnDefinitionCreated func(context.Context, *DefinitionEvent)
	OnInstanceStarted   func(context.Context, *InstanceEvent)
	OnActionExecuted    func(context.Context, *InstanceEvent)
	OnActionRejected    func(context.Context, *InstanceEvent)
}

// ComposeHooks fans each callback out to every non-nil callback of the given hooks, in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var (
		defs     []func(context.Context, *DefinitionEvent)
		started  []func(context.Context, *InstanceEvent)
		executed []func(context.Context, *InstanceEvent)
		rejected []func(context.Context, *InstanceEvent)
	)
	for _, h := range hooks {
		if h.OnDefinitionCreated != nil {
			defs = append(defs, h.OnDefinitionCreated)
		}
		if h.OnInstanceStarted != nil {
			started = append(started, h.OnInstanceStarted)
		}
		if h.OnActionExecuted != nil {
			executed = append(executed, h.OnActionExecuted)
		}
		if h.OnActionRejected != nil {
			rejected = append(rejected, h.OnActionRejected)
		}
	}

	return LifecycleHooks{
		OnDefinitionCreated: fanOut(defs),
		OnInstanceStarted:   fanOut(started),
		OnActionExecuted:    fanOut(executed),
		OnActionRejected:    fanOut(rejected),
	}
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
