package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "mandata/contexts/property-authority/authority-service/application"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// Executor wraps every state-mutating command with at-most-once semantics per
// idempotency key. The first submission claims the key, executes, and records
// the outcome; retries replay the recorded outcome (success or domain failure)
// without re-running business logic. Concurrent submissions with the same key
// are serialized: one executes, the rest wait for its recorded result.
type Executor struct {
	Idempotency  ports.IdempotencyStore
	Clock        ports.Clock
	ClaimTTL     time.Duration
	RecordTTL    time.Duration
	WaitBudget   time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Run executes fn under the idempotency contract for (operation, key).
// requestHash detects key reuse with different arguments. The returned bool
// reports whether the payload was replayed from a previous submission.
func (e Executor) Run(
	ctx context.Context,
	operation string,
	key string,
	requestHash string,
	fn func(context.Context) (json.RawMessage, error),
) (json.RawMessage, bool, error) {
	logger := application.ResolveLogger(e.Logger)
	if strings.TrimSpace(key) == "" {
		return nil, false, domainerrors.ErrIdempotencyKeyRequired
	}

	deadline := e.now().Add(e.waitBudget())
	for {
		now := e.now()
		existing, found, err := e.Idempotency.GetRecord(ctx, key, now)
		if err != nil {
			return nil, false, err
		}
		if found {
			if existing.RequestHash != requestHash {
				return nil, false, domainerrors.ErrIdempotencyConflict
			}
			switch existing.Status {
			case ports.IdempotencyStatusSucceeded:
				return append(json.RawMessage(nil), existing.ResponsePayload...), true, nil
			case ports.IdempotencyStatusFailed:
				if sentinel, ok := domainerrors.ByCode(existing.ErrorCode); ok {
					return nil, true, sentinel
				}
				logger.Error("idempotency replay holds unknown error code",
					"event", "authority_idempotency_unknown_code",
					"module", "property-authority/authority-service",
					"layer", "application",
					"operation", operation,
					"error_code", existing.ErrorCode,
				)
				return nil, true, domainerrors.ErrIdempotencyConflict
			}
			// in flight: fall through and try to take over an expired claim,
			// otherwise wait for the owner's outcome.
		}

		claimed, err := e.Idempotency.ClaimRecord(ctx, ports.IdempotencyRecord{
			Key:            key,
			Operation:      operation,
			RequestHash:    requestHash,
			Status:         ports.IdempotencyStatusInFlight,
			ClaimExpiresAt: now.Add(e.claimTTL()),
		}, now)
		if err != nil {
			return nil, false, err
		}
		if claimed {
			return e.execute(ctx, operation, key, requestHash, fn)
		}

		if !e.now().Before(deadline) {
			logger.Warn("idempotency wait budget exhausted",
				"event", "authority_idempotency_wait_exhausted",
				"module", "property-authority/authority-service",
				"layer", "application",
				"operation", operation,
			)
			return nil, false, domainerrors.ErrIdempotencyInFlight
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(e.pollInterval()):
		}
	}
}

func (e Executor) execute(
	ctx context.Context,
	operation string,
	key string,
	requestHash string,
	fn func(context.Context) (json.RawMessage, error),
) (json.RawMessage, bool, error) {
	logger := application.ResolveLogger(e.Logger)
	payload, execErr := fn(ctx)

	// Recording must survive caller cancellation: an applied mutation that is
	// not recorded under its key would double-apply on retry.
	recordCtx := context.WithoutCancel(ctx)
	now := e.now()

	if execErr != nil {
		code, isDomain := domainerrors.CodeOf(execErr)
		if !isDomain {
			// Infrastructure failure: release the claim so a retry re-executes.
			if releaseErr := e.Idempotency.ReleaseClaim(recordCtx, key); releaseErr != nil {
				logger.Error("idempotency claim release failed",
					"event", "authority_idempotency_release_failed",
					"module", "property-authority/authority-service",
					"layer", "application",
					"operation", operation,
					"error", releaseErr.Error(),
				)
			}
			return nil, false, execErr
		}
		if recordErr := e.Idempotency.CompleteRecord(recordCtx, ports.IdempotencyRecord{
			Key:         key,
			Operation:   operation,
			RequestHash: requestHash,
			Status:      ports.IdempotencyStatusFailed,
			ErrorCode:   code,
			ExpiresAt:   now.Add(e.recordTTL()),
		}); recordErr != nil {
			logger.Error("idempotency failure record failed",
				"event", "authority_idempotency_record_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"operation", operation,
				"error", recordErr.Error(),
			)
			return nil, false, recordErr
		}
		return nil, false, execErr
	}

	if recordErr := e.Idempotency.CompleteRecord(recordCtx, ports.IdempotencyRecord{
		Key:             key,
		Operation:       operation,
		RequestHash:     requestHash,
		Status:          ports.IdempotencyStatusSucceeded,
		ResponsePayload: payload,
		ExpiresAt:       now.Add(e.recordTTL()),
	}); recordErr != nil {
		logger.Error("idempotency success record failed",
			"event", "authority_idempotency_record_failed",
			"module", "property-authority/authority-service",
			"layer", "application",
			"operation", operation,
			"error", recordErr.Error(),
		)
		return nil, false, recordErr
	}
	return payload, false, nil
}

func (e Executor) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Executor) claimTTL() time.Duration {
	if e.ClaimTTL <= 0 {
		return 30 * time.Second
	}
	return e.ClaimTTL
}

func (e Executor) recordTTL() time.Duration {
	if e.RecordTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return e.RecordTTL
}

func (e Executor) waitBudget() time.Duration {
	if e.WaitBudget <= 0 {
		return 2 * time.Second
	}
	return e.WaitBudget
}

func (e Executor) pollInterval() time.Duration {
	if e.PollInterval <= 0 {
		return 25 * time.Millisecond
	}
	return e.PollInterval
}
