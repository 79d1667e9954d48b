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

// CreateOwnershipCommand contains input for recording a party's role over a property.
type CreateOwnershipCommand struct {
	IdempotencyKey   string
	OrgID            string
	ActorID          string
	PropertyID       string
	PartyID          string
	Role             entities.OwnershipRole
	OwnershipPercent *float64
	IsPrimaryContact bool
	EffectiveFrom    *time.Time
	Notes            string
}

// CreateOwnershipResult captures the created ownership and replay status.
type CreateOwnershipResult struct {
	Ownership  entities.Ownership `json:"ownership"`
	AuditLogID string             `json:"audit_log_id"`
	Replayed   bool               `json:"replayed"`
}

// CreateOwnershipUseCase coordinates idempotent ownership creation.
type CreateOwnershipUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute validates input and writes the ownership. The repository enforces,
// inside one transaction, that a non-OWNER role requires an existing active
// OWNER on the property and that the (property, party, role) triple is unique
// among non-deleted records.
func (u CreateOwnershipUseCase) Execute(ctx context.Context, cmd CreateOwnershipCommand) (CreateOwnershipResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("create ownership started",
		"event", "ownership_create_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"property_id", cmd.PropertyID,
		"party_id", cmd.PartyID,
		"role", string(cmd.Role),
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.PropertyID) == "" || strings.TrimSpace(cmd.PartyID) == "" {
		return CreateOwnershipResult{}, domainerrors.ErrInvalidOwnershipInput
	}
	if !entities.ValidRole(cmd.Role) {
		return CreateOwnershipResult{}, domainerrors.ErrInvalidRole
	}
	if cmd.OwnershipPercent != nil && (*cmd.OwnershipPercent <= 0 || *cmd.OwnershipPercent > 100) {
		return CreateOwnershipResult{}, domainerrors.ErrInvalidPercent
	}

	requestHash, err := hashRequest(struct {
		PropertyID       string     `json:"property_id"`
		PartyID          string     `json:"party_id"`
		Role             string     `json:"role"`
		OwnershipPercent *float64   `json:"ownership_percent,omitempty"`
		IsPrimaryContact bool       `json:"is_primary_contact"`
		EffectiveFrom    *time.Time `json:"effective_from,omitempty"`
		Notes            string     `json:"notes,omitempty"`
	}{
		PropertyID:       cmd.PropertyID,
		PartyID:          cmd.PartyID,
		Role:             string(cmd.Role),
		OwnershipPercent: cmd.OwnershipPercent,
		IsPrimaryContact: cmd.IsPrimaryContact,
		EffectiveFrom:    cmd.EffectiveFrom,
		Notes:            cmd.Notes,
	})
	if err != nil {
		return CreateOwnershipResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "create_ownership", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "create_ownership", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		if _, err := u.Repository.GetParty(ctx, cmd.OrgID, cmd.PartyID); err != nil {
			return nil, err
		}

		ownershipID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		now := u.now()
		effectiveFrom := now
		if cmd.EffectiveFrom != nil {
			effectiveFrom = cmd.EffectiveFrom.UTC()
		}

		mutation, err := u.Repository.CreateOwnership(ctx, ports.CreateOwnershipInput{
			OwnershipID:      ownershipID,
			AuditLogID:       auditLogID,
			OutboxID:         outboxID,
			OrgID:            cmd.OrgID,
			PropertyID:       cmd.PropertyID,
			PartyID:          cmd.PartyID,
			Role:             cmd.Role,
			OwnershipPercent: cmd.OwnershipPercent,
			IsPrimaryContact: cmd.IsPrimaryContact,
			EffectiveFrom:    effectiveFrom,
			Notes:            cmd.Notes,
			ActorID:          cmd.ActorID,
			CreatedAt:        now,
		})
		if err != nil {
			logger.Error("create ownership write failed",
				"event", "ownership_create_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"property_id", cmd.PropertyID,
				"party_id", cmd.PartyID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(CreateOwnershipResult{
			Ownership:  mutation.Ownership,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return CreateOwnershipResult{}, err
	}

	var result CreateOwnershipResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return CreateOwnershipResult{}, err
	}
	result.Replayed = replayed

	logger.Info("create ownership completed",
		"event", "ownership_create_completed",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", result.Ownership.OwnershipID,
		"replayed", replayed,
	)
	return result, nil
}

func (u CreateOwnershipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
