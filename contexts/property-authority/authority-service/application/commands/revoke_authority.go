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

// RevokeAuthorityCommand contains input for revoking a pending or active delegation.
type RevokeAuthorityCommand struct {
	IdempotencyKey string
	OrgID          string
	ActorID        string
	GrantID        string
	Reason         string
}

// RevokeAuthorityResult captures the revoked grant and replay status.
type RevokeAuthorityResult struct {
	Grant      entities.DelegatedAuthority `json:"grant"`
	AuditLogID string                      `json:"audit_log_id"`
	Replayed   bool                        `json:"replayed"`
}

// RevokeAuthorityUseCase coordinates idempotent revocation.
type RevokeAuthorityUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute transitions a pending or active grant to revoked. The status check
// runs under lock inside the repository, so of two racing revocations exactly
// one succeeds and the other observes the changed status.
func (u RevokeAuthorityUseCase) Execute(ctx context.Context, cmd RevokeAuthorityCommand) (RevokeAuthorityResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("revoke authority started",
		"event", "authority_revoke_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"grant_id", cmd.GrantID,
		"actor_id", cmd.ActorID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.GrantID) == "" {
		return RevokeAuthorityResult{}, domainerrors.ErrInvalidOwnershipInput
	}

	requestHash, err := hashRequest(struct {
		GrantID string `json:"grant_id"`
		Reason  string `json:"reason,omitempty"`
	}{GrantID: cmd.GrantID, Reason: cmd.Reason})
	if err != nil {
		return RevokeAuthorityResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "revoke_authority", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "revoke_authority", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.RevokeGrant(ctx, ports.RevokeGrantInput{
			AuditLogID: auditLogID,
			OutboxID:   outboxID,
			OrgID:      cmd.OrgID,
			GrantID:    cmd.GrantID,
			Reason:     cmd.Reason,
			ActorID:    cmd.ActorID,
			RevokedAt:  u.now(),
		})
		if err != nil {
			logger.Error("revoke authority write failed",
				"event", "authority_revoke_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"grant_id", cmd.GrantID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(RevokeAuthorityResult{
			Grant:      mutation.Grant,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return RevokeAuthorityResult{}, err
	}

	var result RevokeAuthorityResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return RevokeAuthorityResult{}, err
	}
	result.Replayed = replayed

	logger.Info("revoke authority completed",
		"event", "authority_revoke_completed",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"grant_id", cmd.GrantID,
		"replayed", replayed,
	)
	return result, nil
}

func (u RevokeAuthorityUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
