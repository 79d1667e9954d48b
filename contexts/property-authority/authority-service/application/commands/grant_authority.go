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

// GrantAuthorityCommand contains input for creating a pending delegation.
type GrantAuthorityCommand struct {
	IdempotencyKey    string
	OrgID             string
	ActorID           string
	OwnershipID       string
	DelegatePartyID   string
	AuthorityType     entities.AuthorityType
	MonetaryLimit     *float64
	ScopeDescription  string
	ScopeRestrictions map[string]any
	ExpiresAt         *time.Time
}

// GrantAuthorityResult captures the created grant and replay status.
type GrantAuthorityResult struct {
	Grant      entities.DelegatedAuthority `json:"grant"`
	AuditLogID string                      `json:"audit_log_id"`
	Replayed   bool                        `json:"replayed"`
}

// GrantAuthorityUseCase coordinates idempotent grant creation.
type GrantAuthorityUseCase struct {
	Repository  ports.Repository
	Executor    Executor
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Execute validates grant preconditions in order (first failure wins), then
// writes the pending grant inside the repository transaction.
func (u GrantAuthorityUseCase) Execute(ctx context.Context, cmd GrantAuthorityCommand) (GrantAuthorityResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("grant authority started",
		"event", "authority_grant_started",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"ownership_id", cmd.OwnershipID,
		"delegate_party_id", cmd.DelegatePartyID,
		"authority_type", string(cmd.AuthorityType),
	)

	if strings.TrimSpace(cmd.OrgID) == "" || strings.TrimSpace(cmd.ActorID) == "" ||
		strings.TrimSpace(cmd.OwnershipID) == "" || strings.TrimSpace(cmd.DelegatePartyID) == "" {
		return GrantAuthorityResult{}, domainerrors.ErrInvalidOwnershipInput
	}
	if !entities.ValidAuthorityType(cmd.AuthorityType) {
		return GrantAuthorityResult{}, domainerrors.ErrInvalidAuthorityType
	}
	if cmd.MonetaryLimit != nil && *cmd.MonetaryLimit <= 0 {
		return GrantAuthorityResult{}, domainerrors.ErrInvalidMonetaryLimit
	}
	if cmd.ExpiresAt != nil && !cmd.ExpiresAt.After(u.now()) {
		return GrantAuthorityResult{}, domainerrors.ErrInvalidExpiry
	}

	requestHash, err := hashRequest(struct {
		OwnershipID       string         `json:"ownership_id"`
		DelegatePartyID   string         `json:"delegate_party_id"`
		AuthorityType     string         `json:"authority_type"`
		MonetaryLimit     *float64       `json:"monetary_limit,omitempty"`
		ScopeDescription  string         `json:"scope_description,omitempty"`
		ScopeRestrictions map[string]any `json:"scope_restrictions,omitempty"`
		ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	}{
		OwnershipID:       cmd.OwnershipID,
		DelegatePartyID:   cmd.DelegatePartyID,
		AuthorityType:     string(cmd.AuthorityType),
		MonetaryLimit:     cmd.MonetaryLimit,
		ScopeDescription:  cmd.ScopeDescription,
		ScopeRestrictions: cmd.ScopeRestrictions,
		ExpiresAt:         cmd.ExpiresAt,
	})
	if err != nil {
		return GrantAuthorityResult{}, err
	}

	key := scopedKey(cmd.OrgID, cmd.ActorID, "grant_authority", cmd.IdempotencyKey)
	payload, replayed, err := u.Executor.Run(ctx, "grant_authority", key, requestHash, func(ctx context.Context) (json.RawMessage, error) {
		ownership, err := u.Repository.GetOwnership(ctx, cmd.OrgID, cmd.OwnershipID)
		if err != nil {
			return nil, err
		}
		if !ownership.CanDelegate() {
			return nil, domainerrors.ErrRoleCannotGrant
		}
		if _, err := u.Repository.GetParty(ctx, cmd.OrgID, cmd.DelegatePartyID); err != nil {
			return nil, err
		}
		if cmd.DelegatePartyID == ownership.PartyID {
			return nil, domainerrors.ErrSelfDelegation
		}

		grantID, err := u.IDGenerator.NewID(ctx)
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

		mutation, err := u.Repository.CreateGrant(ctx, ports.CreateGrantInput{
			GrantID:           grantID,
			AuditLogID:        auditLogID,
			OutboxID:          outboxID,
			OrgID:             cmd.OrgID,
			OwnershipID:       cmd.OwnershipID,
			DelegatePartyID:   cmd.DelegatePartyID,
			AuthorityType:     cmd.AuthorityType,
			MonetaryLimit:     cmd.MonetaryLimit,
			ScopeDescription:  cmd.ScopeDescription,
			ScopeRestrictions: cmd.ScopeRestrictions,
			ExpiresAt:         cmd.ExpiresAt,
			ActorID:           cmd.ActorID,
			GrantedAt:         u.now(),
		})
		if err != nil {
			logger.Error("grant authority write failed",
				"event", "authority_grant_write_failed",
				"module", "property-authority/authority-service",
				"layer", "application",
				"org_id", cmd.OrgID,
				"ownership_id", cmd.OwnershipID,
				"delegate_party_id", cmd.DelegatePartyID,
				"error", err.Error(),
			)
			return nil, err
		}
		return json.Marshal(GrantAuthorityResult{
			Grant:      mutation.Grant,
			AuditLogID: mutation.AuditLogID,
		})
	})
	if err != nil {
		return GrantAuthorityResult{}, err
	}

	var result GrantAuthorityResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return GrantAuthorityResult{}, err
	}
	result.Replayed = replayed

	logger.Info("grant authority completed",
		"event", "authority_grant_completed",
		"module", "property-authority/authority-service",
		"layer", "application",
		"org_id", cmd.OrgID,
		"grant_id", result.Grant.GrantID,
		"replayed", replayed,
	)
	return result, nil
}

func (u GrantAuthorityUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
