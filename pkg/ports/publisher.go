package ports

import (
	"context"

	"github.com/aretw0/stateflow/pkg/domain"
)

// EventPublisher broadcasts instance lifecycle events outside the process.
// Publishing is best effort: the orchestrator logs failures and carries on.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.InstanceEvent) error
}
