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

// UpdateOwnershipCommand mutates the caller-editable ownership attributes.
// Nil fields are left unchanged; role changes are not supported through this
// command so the last-owner invariant cannot be violated by a role edit.
type UpdateOwnershipCommand struct {
	IdempotencyKey   string
	OrgID            string
	ActorID          string
	OwnershipID      string
	OwnershipPercent *float64
	IsPrimaryContact *bool
	EffectiveTo      *time.Time
	Notes            *string
}

// UpdateOwnershipResult captures the updated ownership and replay status.
type UpdateOwnershipResult struct {
	Ownership  entities.Ownership `json:"ownership"`
	AuditLogID string             `json:"audit_log_id"`
	Replayed   bool               `json:"replayed"`
}

// UpdateOwnershipUseCase coordinates idempotent ownership updates.
type UpdateOwnershipUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (u UpdateOwnershipUseCase) Execute(ctx context.Context, cmd UpdateOwnershipCommand) (UpdateOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("update ownership started",
		"event", "ownership_update_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.OwnershipID) == "" {
		return UpdateOwnershipResult{}, domainerrors.ErrInvalidOwnershipInput
	}
	if cmd.OwnershipPercent != nil && (*cmd.OwnershipPercent <= 0 || *cmd.OwnershipPercent > 100) {
		return UpdateOwnershipResult{}, domainerrors.ErrInvalidPercent
	}

	requestHash, err := hashRequest(struct {
		OwnershipID      string     `json:"ownership_id"`
		OwnershipPercent *float64   `json:"ownership_percent,omitempty"`
		IsPrimaryContact *bool      `json:"is_primary_contact,omitempty"`
		EffectiveTo      *time.Time `json:"effective_to,omitempty"`
		Notes            *string    `json:"notes,omitempty"`
	}{
		OwnershipID:      cmd.OwnershipID,
		OwnershipPercent: cmd.OwnershipPercent,
		IsPrimaryContact: cmd.IsPrimaryContact,
		EffectiveTo:      cmd.EffectiveTo,
		Notes:            cmd.Notes,
	})
	if err != nil {
		return UpdateOwnershipResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "update_ownership", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "update_ownership", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.UpdateOwnership(ctx, ports.UpdateOwnershipInput{
			AuditLogID:       auditLogID,
			OutboxID:         outboxID,
			OrgID:            cmd.OrgID,
			OwnershipID:      cmd.OwnershipID,
			OwnershipPercent: cmd.OwnershipPercent,
			IsPrimaryContact: cmd.IsPrimaryContact,
			EffectiveTo:      cmd.EffectiveTo,
			Notes:            cmd.Notes,
			ActorID:          cmd.ActorID,
			UpdatedAt:        u.now(),
		})
		if err != nil {
			logger.Error("update ownership write failed",
				"event", "ownership_update_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"ownership_id", cmd.OwnershipID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(UpdateOwnershipResult{
			Ownership:  mutation.Ownership,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return UpdateOwnershipResult{}, err
	}

	var result UpdateOwnershipResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return UpdateOwnershipResult{}, err
	}
	result.Replayed = replayed
	return result, nil
}

func (u UpdateOwnershipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
