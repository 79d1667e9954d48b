package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "mandata/contexts/property-authority/authority-service/application"
	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// ResolveAuthorityQuery asks whether a party currently holds an authority over
// a property, optionally for a specific monetary amount.
type ResolveAuthorityQuery struct {
	OrgID         string
	PropertyID    string
	PartyID       string
	AuthorityType entities.AuthorityType
	Amount        *float64
}

// ResolveAuthorityUseCase is the read-only resolution algorithm. It is a pure
// function of current store state, re-evaluated on every call: a stale
// positive answer after a revocation would be a security defect, so nothing
// here is cached across requests.
type ResolveAuthorityUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

// Execute evaluates sources in strict priority order: intrinsic ownership
// first, then delegation. An owner is never overridden by a delegation.
func (u ResolveAuthorityUseCase) Execute(ctx context.Context, query ResolveAuthorityQuery) (entities.AuthorityDecision, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(query.OrgID) == "" || strings.TrimSpace(query.PropertyID) == "" ||
		strings.TrimSpace(query.PartyID) == "" {
		return entities.AuthorityDecision{}, domainerrors.ErrInvalidOwnershipInput
	}
	if !entities.ValidAuthorityType(query.AuthorityType) {
		return entities.AuthorityDecision{}, domainerrors.ErrInvalidAuthorityType
	}

	now := u.now()
	decision := entities.AuthorityDecision{
		PropertyID:    query.PropertyID,
		PartyID:       query.PartyID,
		AuthorityType: query.AuthorityType,
		Source:        entities.AuthoritySourceNone,
		CheckedAt:     now,
	}

	ownership, found, err := u.Repository.FindOwnerRole(ctx, query.OrgID, query.PropertyID, query.PartyID, now)
	if err != nil {
		return entities.AuthorityDecision{}, err
	}
	if found {
		// Intrinsic authority carries no monetary bound in this model.
		decision.HasAuthority = true
		if ownership.Role == entities.OwnershipRoleCoOwner {
			decision.Source = entities.AuthoritySourceCoOwner
		} else {
			decision.Source = entities.AuthoritySourceOwner
		}
		return decision, nil
	}

	grant, found, err := u.Repository.FindEffectiveGrant(ctx, query.OrgID, query.PropertyID, query.PartyID, query.AuthorityType, now)
	if err != nil {
		return entities.AuthorityDecision{}, err
	}
	if found {
		decision.Source = entities.AuthoritySourceDelegated
		decision.GrantID = grant.GrantID
		decision.MonetaryLimit = grant.MonetaryLimit
		if query.Amount != nil && grant.MonetaryLimit != nil {
			// An amount over the limit means no authority at all, not
			// authority with a warning. Inclusive upper bound.
			within := *query.Amount <= *grant.MonetaryLimit
			decision.WithinLimit = &within
			decision.HasAuthority = within
		} else {
			decision.HasAuthority = true
		}

		logger.Debug("authority resolved from delegation",
			"event", "authority_resolved_delegated",
			"module", "property-authority/authority-service",
			"layer", "application",
			"org_id", query.OrgID,
			"property_id", query.PropertyID,
			"party_id", query.PartyID,
			"grant_id", grant.GrantID,
			"has_authority", decision.HasAuthority,
		)
		return decision, nil
	}

	return decision, nil
}

func (u ResolveAuthorityUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
