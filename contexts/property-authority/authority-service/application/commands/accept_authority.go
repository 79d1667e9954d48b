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

// AcceptAuthorityCommand contains input for accepting a pending delegation.
type AcceptAuthorityCommand struct {
	IdempotencyKey string
	OrgID          string
	ActorID        string
	GrantID        string
}

// AcceptAuthorityResult captures the activated grant and replay status.
type AcceptAuthorityResult struct {
	Grant      entities.DelegatedAuthority `json:"grant"`
	AuditLogID string                      `json:"audit_log_id"`
	Replayed   bool                        `json:"replayed"`
}

// AcceptAuthorityUseCase coordinates idempotent acceptance by the delegate.
type AcceptAuthorityUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute transitions a pending grant to active. Only the delegate party may
// accept; the status check is re-evaluated under lock inside the repository.
func (u AcceptAuthorityUseCase) Execute(ctx context.Context, cmd AcceptAuthorityCommand) (AcceptAuthorityResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("accept authority started",
		"event", "authority_accept_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"grant_id", cmd.GrantID,
		"actor_id", cmd.ActorID,
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.GrantID) == "" {
		return AcceptAuthorityResult{}, domainerrors.ErrInvalidOwnershipInput
	}

	requestHash, err := hashRequest(struct {
		GrantID string `json:"grant_id"`
	}{GrantID: cmd.GrantID})
	if err != nil {
		return AcceptAuthorityResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "accept_authority", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "accept_authority", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		grant, err := u.Repository.GetGrant(ctx, cmd.OrgID, cmd.GrantID)
		if err != nil {
			return nil, err
		}
		if grant.DelegatePartyID != cmd.ActorID {
			return nil, domainerrors.ErrNotDelegateParty
		}

		auditLogID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}
		outboxID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return nil, err
		}

		mutation, err := u.Repository.AcceptGrant(ctx, ports.AcceptGrantInput{
			AuditLogID: auditLogID,
			OutboxID:   outboxID,
			OrgID:      cmd.OrgID,
			GrantID:    cmd.GrantID,
			ActorID:    cmd.ActorID,
			AcceptedAt: u.now(),
		})
		if err != nil {
			logger.Error("accept authority write failed",
				"event", "authority_accept_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"grant_id", cmd.GrantID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(AcceptAuthorityResult{
			Grant:      mutation.Grant,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return AcceptAuthorityResult{}, err
	}

	var result AcceptAuthorityResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return AcceptAuthorityResult{}, err
	}
	result.Replayed = replayed

	logger.Info("accept authority completed",
		"event", "authority_accept_completed",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"grant_id", cmd.GrantID,
		"replayed", replayed,
	)
	return result, nil
}

func (u AcceptAuthorityUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
