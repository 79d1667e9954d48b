package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mandata/contexts/property-authority/authority-service/application/commands"
	"mandata/contexts/property-authority/authority-service/application/queries"
	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	httptransport "mandata/contexts/property-authority/authority-service/transport/http"
)

// Handler maps transport DTOs onto application commands and queries.
type Handler struct {
	CreateOwnership    commands.CreateOwnershipUseCase
	UpdateOwnership    commands.UpdateOwnershipUseCase
	VerifyOwnership    commands.VerifyOwnershipUseCase
	TerminateOwnership commands.TerminateOwnershipUseCase
	DeleteOwnership    commands.DeleteOwnershipUseCase
	GrantAuthority     commands.GrantAuthorityUseCase
	AcceptAuthority    commands.AcceptAuthorityUseCase
	RevokeAuthority    commands.RevokeAuthorityUseCase
	GetOwnership       queries.GetOwnershipUseCase
	ListOwnerships     queries.ListOwnershipsUseCase
	ListAuthorities    queries.ListAuthoritiesUseCase
	ResolveAuthority   queries.ResolveAuthorityUseCase
	Logger             *slog.Logger
}

func (h Handler) CreateOwnershipHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	idempotencyKey string,
	req httptransport.CreateOwnershipRequest,
) (httptransport.OwnershipResponse, error) {
	effectiveFrom, err := parseOptionalTime(req.EffectiveFrom)
	if err != nil {
		return httptransport.OwnershipResponse{}, domainerrors.ErrInvalidOwnershipInput
	}
	result, err := h.CreateOwnership.Execute(ctx, commands.CreateOwnershipCommand{
		IdempotencyKey:   idempotencyKey,
		OrgID:            orgID,
		ActorID:          actorID,
		PropertyID:       req.PropertyID,
		PartyID:          req.PartyID,
		Role:             entities.OwnershipRole(req.Role),
		OwnershipPercent: req.OwnershipPercent,
		IsPrimaryContact: req.IsPrimaryContact,
		EffectiveFrom:    effectiveFrom,
		Notes:            req.Notes,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toOwnershipDTO(result.Ownership),
	}, nil
}

func (h Handler) UpdateOwnershipHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	ownershipID string,
	idempotencyKey string,
	req httptransport.UpdateOwnershipRequest,
) (httptransport.OwnershipResponse, error) {
	var effectiveTo *time.Time
	if req.EffectiveTo != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EffectiveTo)
		if err != nil {
			return httptransport.OwnershipResponse{}, domainerrors.ErrInvalidOwnershipInput
		}
		utc := parsed.UTC()
		effectiveTo = &utc
	}
	result, err := h.UpdateOwnership.Execute(ctx, commands.UpdateOwnershipCommand{
		IdempotencyKey:   idempotencyKey,
		OrgID:            orgID,
		ActorID:          actorID,
		OwnershipID:      ownershipID,
		OwnershipPercent: req.OwnershipPercent,
		IsPrimaryContact: req.IsPrimaryContact,
		EffectiveTo:      effectiveTo,
		Notes:            req.Notes,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toOwnershipDTO(result.Ownership),
	}, nil
}

func (h Handler) VerifyOwnershipHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	ownershipID string,
	idempotencyKey string,
) (httptransport.OwnershipResponse, error) {
	result, err := h.VerifyOwnership.Execute(ctx, commands.VerifyOwnershipCommand{
		IdempotencyKey: idempotencyKey,
		OrgID:          orgID,
		ActorID:        actorID,
		OwnershipID:    ownershipID,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toOwnershipDTO(result.Ownership),
	}, nil
}

func (h Handler) TerminateOwnershipHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	ownershipID string,
	idempotencyKey string,
) (httptransport.OwnershipResponse, error) {
	result, err := h.TerminateOwnership.Execute(ctx, commands.TerminateOwnershipCommand{
		IdempotencyKey: idempotencyKey,
		OrgID:          orgID,
		ActorID:        actorID,
		OwnershipID:    ownershipID,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toOwnershipDTO(result.Ownership),
	}, nil
}

func (h Handler) DeleteOwnershipHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	ownershipID string,
	idempotencyKey string,
) (httptransport.OwnershipResponse, error) {
	result, err := h.DeleteOwnership.Execute(ctx, commands.DeleteOwnershipCommand{
		IdempotencyKey: idempotencyKey,
		OrgID:          orgID,
		ActorID:        actorID,
		OwnershipID:    ownershipID,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toOwnershipDTO(result.Ownership),
	}, nil
}

func (h Handler) GetOwnershipHandler(
	ctx context.Context,
	orgID string,
	ownershipID string,
) (httptransport.OwnershipResponse, error) {
	ownership, err := h.GetOwnership.Execute(ctx, queries.GetOwnershipQuery{
		OrgID:       orgID,
		OwnershipID: ownershipID,
	})
	if err != nil {
		return httptransport.OwnershipResponse{}, err
	}
	return httptransport.OwnershipResponse{
		Status: "success",
		Data:   toOwnershipDTO(ownership),
	}, nil
}

func (h Handler) ListOwnershipsHandler(
	ctx context.Context,
	query queries.ListOwnershipsQuery,
) (httptransport.OwnershipListResponse, error) {
	items, err := h.ListOwnerships.Execute(ctx, query)
	if err != nil {
		return httptransport.OwnershipListResponse{}, err
	}
	resp := httptransport.OwnershipListResponse{
		Status: "success",
		Data:   make([]httptransport.OwnershipDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toOwnershipDTO(item))
	}
	return resp, nil
}

func (h Handler) GrantAuthorityHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	idempotencyKey string,
	req httptransport.GrantAuthorityRequest,
) (httptransport.GrantResponse, error) {
	var expiresAt *time.Time
	if strings.TrimSpace(req.ExpiresAt) != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return httptransport.GrantResponse{}, domainerrors.ErrInvalidExpiry
		}
		utc := parsed.UTC()
		expiresAt = &utc
	}
	result, err := h.GrantAuthority.Execute(ctx, commands.GrantAuthorityCommand{
		IdempotencyKey:    idempotencyKey,
		OrgID:             orgID,
		ActorID:           actorID,
		OwnershipID:       req.OwnershipID,
		DelegatePartyID:   req.DelegatePartyID,
		AuthorityType:     entities.AuthorityType(req.AuthorityType),
		MonetaryLimit:     req.MonetaryLimit,
		ScopeDescription:  req.ScopeDescription,
		ScopeRestrictions: req.ScopeRestrictions,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		return httptransport.GrantResponse{}, err
	}
	return httptransport.GrantResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toGrantDTO(result.Grant),
	}, nil
}

func (h Handler) AcceptAuthorityHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	grantID string,
	idempotencyKey string,
) (httptransport.GrantResponse, error) {
	result, err := h.AcceptAuthority.Execute(ctx, commands.AcceptAuthorityCommand{
		IdempotencyKey: idempotencyKey,
		OrgID:          orgID,
		ActorID:        actorID,
		GrantID:        grantID,
	})
	if err != nil {
		return httptransport.GrantResponse{}, err
	}
	return httptransport.GrantResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toGrantDTO(result.Grant),
	}, nil
}

func (h Handler) RevokeAuthorityHandler(
	ctx context.Context,
	orgID string,
	actorID string,
	grantID string,
	idempotencyKey string,
	req httptransport.RevokeAuthorityRequest,
) (httptransport.GrantResponse, error) {
	result, err := h.RevokeAuthority.Execute(ctx, commands.RevokeAuthorityCommand{
		IdempotencyKey: idempotencyKey,
		OrgID:          orgID,
		ActorID:        actorID,
		GrantID:        grantID,
		Reason:         req.Reason,
	})
	if err != nil {
		return httptransport.GrantResponse{}, err
	}
	return httptransport.GrantResponse{
		Status:     "success",
		Replayed:   result.Replayed,
		AuditLogID: result.AuditLogID,
		Data:       toGrantDTO(result.Grant),
	}, nil
}

func (h Handler) ListAuthoritiesHandler(
	ctx context.Context,
	query queries.ListAuthoritiesQuery,
) (httptransport.GrantListResponse, error) {
	items, err := h.ListAuthorities.Execute(ctx, query)
	if err != nil {
		return httptransport.GrantListResponse{}, err
	}
	resp := httptransport.GrantListResponse{
		Status: "success",
		Data:   make([]httptransport.GrantDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toGrantDTO(item))
	}
	return resp, nil
}

func (h Handler) ResolveAuthorityHandler(
	ctx context.Context,
	orgID string,
	req httptransport.ResolveAuthorityRequest,
) (httptransport.ResolveAuthorityResponse, error) {
	decision, err := h.ResolveAuthority.Execute(ctx, queries.ResolveAuthorityQuery{
		OrgID:         orgID,
		PropertyID:    req.PropertyID,
		PartyID:       req.PartyID,
		AuthorityType: entities.AuthorityType(req.AuthorityType),
		Amount:        req.Amount,
	})
	if err != nil {
		return httptransport.ResolveAuthorityResponse{}, err
	}
	return httptransport.ResolveAuthorityResponse{
		Status: "success",
		Data: httptransport.AuthorityDecisionDTO{
			PropertyID:    decision.PropertyID,
			PartyID:       decision.PartyID,
			AuthorityType: string(decision.AuthorityType),
			HasAuthority:  decision.HasAuthority,
			Source:        string(decision.Source),
			GrantID:       decision.GrantID,
			MonetaryLimit: decision.MonetaryLimit,
			WithinLimit:   decision.WithinLimit,
			CheckedAt:     decision.CheckedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func toOwnershipDTO(ownership entities.Ownership) httptransport.OwnershipDTO {
	return httptransport.OwnershipDTO{
		OwnershipID:      ownership.OwnershipID,
		OrgID:            ownership.OrgID,
		PropertyID:       ownership.PropertyID,
		PartyID:          ownership.PartyID,
		Role:             string(ownership.Role),
		Status:           string(ownership.Status),
		OwnershipPercent: ownership.OwnershipPercent,
		IsPrimaryContact: ownership.IsPrimaryContact,
		EffectiveFrom:    ownership.EffectiveFrom.UTC().Format(time.RFC3339),
		EffectiveTo:      formatOptionalTime(ownership.EffectiveTo),
		Notes:            ownership.Notes,
		VerifiedAt:       formatOptionalTime(ownership.VerifiedAt),
		VerifiedBy:       ownership.VerifiedBy,
		CreatedAt:        ownership.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        ownership.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toGrantDTO(grant entities.DelegatedAuthority) httptransport.GrantDTO {
	return httptransport.GrantDTO{
		GrantID:           grant.GrantID,
		OrgID:             grant.OrgID,
		OwnershipID:       grant.OwnershipID,
		DelegatePartyID:   grant.DelegatePartyID,
		AuthorityType:     string(grant.AuthorityType),
		Status:            string(grant.Status),
		MonetaryLimit:     grant.MonetaryLimit,
		ScopeDescription:  grant.ScopeDescription,
		ScopeRestrictions: grant.ScopeRestrictions,
		ExpiresAt:         formatOptionalTime(grant.ExpiresAt),
		GrantedAt:         grant.GrantedAt.UTC().Format(time.RFC3339),
		GrantedBy:         grant.GrantedBy,
		AcceptedAt:        formatOptionalTime(grant.AcceptedAt),
		RevokedAt:         formatOptionalTime(grant.RevokedAt),
		RevokedBy:         grant.RevokedBy,
		RevokeReason:      grant.RevokeReason,
	}
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}
