package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "mandata/contexts/property-authority/authority-service/application"
	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// TerminateOwnershipCommand ends an ownership relationship.
type TerminateOwnershipCommand struct {
	IdempotencyKey string
	OrgID          string
	ActorID        string
	OwnershipID    string
}

// TerminateOwnershipResult captures the terminated ownership and replay status.
type TerminateOwnershipResult struct {
	Ownership  entities.Ownership `json:"ownership"`
	AuditLogID string             `json:"audit_log_id"`
	Replayed   bool               `json:"replayed"`
}

// TerminateOwnershipUseCase coordinates idempotent termination. The repository
// rejects terminating the last active OWNER of a property; the count runs
// under row locks in the same transaction as the status change, so two
// concurrent terminations cannot both pass a stale check.
type TerminateOwnershipUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (u TerminateOwnershipUseCase) Execute(ctx context.Context, cmd TerminateOwnershipCommand) (TerminateOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("terminate ownership started",
		"event", "ownership_terminate_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
		"actor_id", cmd.ActorID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.OwnershipID) == "" {
		return TerminateOwnershipResult{}, domainerrors.ErrInvalidOwnershipInput
	}

	requestHash, err := hashRequest(struct {
		OwnershipID string `json:"ownership_id"`
	}{OwnershipID: cmd.OwnershipID})
	if err != nil {
		return TerminateOwnershipResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "terminate_ownership", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "terminate_ownership", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.TerminateOwnership(ctx, ports.TerminateOwnershipInput{
			AuditLogID:  auditLogID,
			OutboxID:    outboxID,
			OrgID:       cmd.OrgID,
			OwnershipID: cmd.OwnershipID,
			ActorID:     cmd.ActorID,
			EffectiveTo: u.now(),
		})
		if err != nil {
			logger.Error("terminate ownership write failed",
				"event", "ownership_terminate_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"ownership_id", cmd.OwnershipID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(TerminateOwnershipResult{
			Ownership:  mutation.Ownership,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return TerminateOwnershipResult{}, err
	}

	var result TerminateOwnershipResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return TerminateOwnershipResult{}, err
	}
	result.Replayed = replayed

	logger.Info("terminate ownership completed",
		"event", "ownership_terminate_completed",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
		"replayed", replayed,
	)
	return result, nil
}

func (u TerminateOwnershipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
