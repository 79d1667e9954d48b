package ports

import (
	"context"

	contractsv1 "mandata/contracts/gen/events/v1"
)

// AuthorityEvent reuses the canonical cross-runtime envelope contract.
type AuthorityEvent = contractsv1.Envelope

// AuthorityEventPublisher emits authority lifecycle events to the event bus adapter.
type AuthorityEventPublisher interface {
	PublishAuthorityEvent(ctx context.Context, event AuthorityEvent) error
}
