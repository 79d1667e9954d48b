package events

import (
	"context"
	"log/slog"

	"mandata/contexts/property-authority/authority-service/ports"
)

// Bus is the topic-oriented publish surface of the messaging platform.
type Bus interface {
	Publish(ctx context.Context, topic string, event ports.AuthorityEvent) error
}

// Publisher forwards authority lifecycle events from the outbox relay to the
// message bus under a single topic.
type Publisher struct {
	bus    Bus
	topic  string
	logger *slog.Logger
}

func NewPublisher(bus Bus, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if topic == "" {
		topic = "property-authority.events"
	}
	return &Publisher{bus: bus, topic: topic, logger: logger}
}

func (p Publisher) PublishAuthorityEvent(ctx context.Context, event ports.AuthorityEvent) error {
	if p.bus != nil {
		if err := p.bus.Publish(ctx, p.topic, event); err != nil {
			return err
		}
	}
	p.logger.Info("authority event published",
		"event", "authority_event_published",
		"module", "property-authority/authority-service",
		"layer", "adapter",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}
