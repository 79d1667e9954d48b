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

// VerifyOwnershipCommand stamps a privileged verification on an ownership.
type VerifyOwnershipCommand struct {
	IdempotencyKey string
	OrgID          string
	ActorID        string
	OwnershipID    string
}

// VerifyOwnershipResult captures the verified ownership and replay status.
type VerifyOwnershipResult struct {
	Ownership  entities.Ownership `json:"ownership"`
	AuditLogID string             `json:"audit_log_id"`
	Replayed   bool               `json:"replayed"`
}

// VerifyOwnershipUseCase coordinates idempotent verification.
type VerifyOwnershipUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (u VerifyOwnershipUseCase) Execute(ctx context.Context, cmd VerifyOwnershipCommand) (VerifyOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("verify ownership started",
		"event", "ownership_verify_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
		"actor_id", cmd.ActorID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.OwnershipID) == "" {
		return VerifyOwnershipResult{}, domainerrors.ErrInvalidOwnershipInput
	}

	requestHash, err := hashRequest(struct {
		OwnershipID string `json:"ownership_id"`
	}{OwnershipID: cmd.OwnershipID})
	if err != nil {
		return VerifyOwnershipResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "verify_ownership", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "verify_ownership", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.VerifyOwnership(ctx, ports.VerifyOwnershipInput{
			AuditLogID:  auditLogID,
			OutboxID:    outboxID,
			OrgID:       cmd.OrgID,
			OwnershipID: cmd.OwnershipID,
			ActorID:     cmd.ActorID,
			VerifiedAt:  u.now(),
		})
		if err != nil {
			logger.Error("verify ownership write failed",
				"event", "ownership_verify_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"ownership_id", cmd.OwnershipID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(VerifyOwnershipResult{
			Ownership:  mutation.Ownership,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return VerifyOwnershipResult{}, err
	}

	var result VerifyOwnershipResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return VerifyOwnershipResult{}, err
	}
	result.Replayed = replayed
	return result, nil
}

func (u VerifyOwnershipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
