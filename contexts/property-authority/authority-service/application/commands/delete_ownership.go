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

// DeleteOwnershipCommand soft-deletes an ownership record. Records are never
// hard-deleted.
type DeleteOwnershipCommand struct {
	IdempotencyKey string
	OrgID          string
	ActorID        string
	OwnershipID    string
}

// DeleteOwnershipResult captures the deleted ownership and replay status.
type DeleteOwnershipResult struct {
	Ownership  entities.Ownership `json:"ownership"`
	AuditLogID string             `json:"audit_log_id"`
	Replayed   bool               `json:"replayed"`
}

// DeleteOwnershipUseCase coordinates idempotent soft deletion, guarded by the
// same last-active-OWNER check as termination.
type DeleteOwnershipUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (u DeleteOwnershipUseCase) Execute(ctx context.Context, cmd DeleteOwnershipCommand) (DeleteOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("delete ownership started",
		"event", "ownership_delete_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
		"actor_id", cmd.ActorID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.OwnershipID) == "" {
		return DeleteOwnershipResult{}, domainerrors.ErrInvalidOwnershipInput
	}

	requestHash, err := hashRequest(struct {
		OwnershipID string `json:"ownership_id"`
	}{OwnershipID: cmd.OwnershipID})
	if err != nil {
		return DeleteOwnershipResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "delete_ownership", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "delete_ownership", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.DeleteOwnership(ctx, ports.DeleteOwnershipInput{
			AuditLogID:  auditLogID,
			OutboxID:    outboxID,
			OrgID:       cmd.OrgID,
			OwnershipID: cmd.OwnershipID,
			ActorID:     cmd.ActorID,
			DeletedAt:   u.now(),
		})
		if err != nil {
			logger.Error("delete ownership write failed",
				"event", "ownership_delete_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"ownership_id", cmd.OwnershipID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(DeleteOwnershipResult{
			Ownership:  mutation.Ownership,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return DeleteOwnershipResult{}, err
	}

	var result DeleteOwnershipResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return DeleteOwnershipResult{}, err
	}
	result.Replayed = replayed
	return result, nil
}

func (u DeleteOwnershipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
