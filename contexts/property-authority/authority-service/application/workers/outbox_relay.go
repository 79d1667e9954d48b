package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "mandata/contexts/property-authority/authority-service/application"
	"mandata/contexts/property-authority/authority-service/ports"
)

// OutboxRelay publishes pending outbox rows written alongside lifecycle
// mutations and marks them published.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.AuthorityEventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("authority outbox list failed",
			"event", "authority_outbox_list_failed",
			"module", "property-authority/authority-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.AuthorityEvent
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			return err
		}
		if err := r.Publisher.PublishAuthorityEvent(ctx, event); err != nil {
			logger.Error("authority outbox publish failed",
				"event", "authority_outbox_publish_failed",
				"module", "property-authority/authority-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}
	return nil
}
