package workers

import (
	"context"
	"log/slog"
	"time"

	application "mandata/contexts/property-authority/authority-service/application"
	"mandata/contexts/property-authority/authority-service/ports"
)

// ClaimReaper releases idempotency claims whose execution deadline passed
// without a recorded outcome (crashed owners) and purges completed records
// whose replay TTL elapsed. Expiry of grants themselves is lazy and needs no
// sweep.
type ClaimReaper struct {
	Idempotency ports.IdempotencyStore
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (c ClaimReaper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	released, err := c.Idempotency.ReleaseExpiredClaims(ctx, now)
	if err != nil {
		logger.Error("idempotency claim sweep failed",
			"event", "authority_claim_sweep_failed",
			"module", "property-authority/authority-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	purged, err := c.Idempotency.PurgeExpiredRecords(ctx, now)
	if err != nil {
		logger.Error("idempotency record purge failed",
			"event", "authority_record_purge_failed",
			"module", "property-authority/authority-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	if released > 0 || purged > 0 {
		logger.Info("idempotency sweep completed",
			"event", "authority_idempotency_sweep_completed",
			"module", "property-authority/authority-service",
			"layer", "worker",
			"released_claims", released,
			"purged_records", purged,
		)
	}
	return nil
}
