package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Publisher implements ports.EventPublisher over Redis Pub/Sub.
// Events are JSON encoded on the channel <prefix>events.
type Publisher struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a publisher on an existing client.
func NewPublisher(client *backend.Client, logger *slog.Logger, opts ...Option) *Publisher {
	o := buildOptions(opts)
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{client: client, prefix: o.prefix, logger: logger}
}

// Channel returns the Pub/Sub channel name.
func (p *Publisher) Channel() string {
	return p.prefix + "events"
}

// Publish broadcasts one event.
func (p *Publisher) Publish(ctx context.Context, event *domain.InstanceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe delivers events published on the channel until ctx is done or the
// returned cancel func is called. The returned channel is closed afterwards.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *domain.InstanceEvent, func(), error) {
	pubsub := p.client.Subscribe(ctx, p.Channel())
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *domain.InstanceEvent, 10)
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.InstanceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					p.logger.Warn("Dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
