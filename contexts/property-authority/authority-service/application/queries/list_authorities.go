package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// ListAuthoritiesQuery narrows the delegated-authority listing.
type ListAuthoritiesQuery struct {
	OrgID           string
	OwnershipID     string
	DelegatePartyID string
	PropertyID      string
}

// ListAuthoritiesUseCase lists grants with their effective status: a stored
// ACTIVE grant past its expiry reports as EXPIRED, since a background sweep is
// not guaranteed to have run.
type ListAuthoritiesUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u ListAuthoritiesUseCase) Execute(ctx context.Context, query ListAuthoritiesQuery) ([]entities.DelegatedAuthority, error) {
	if strings.TrimSpace(query.OrgID) == "" {
		return nil, domainerrors.ErrInvalidOwnershipInput
	}
	grants, err := u.Repository.ListGrants(ctx, ports.GrantFilter{
		OrgID:           query.OrgID,
		OwnershipID:     strings.TrimSpace(query.OwnershipID),
		DelegatePartyID: strings.TrimSpace(query.DelegatePartyID),
		PropertyID:      strings.TrimSpace(query.PropertyID),
	})
	if err != nil {
		return nil, err
	}

	now := u.now()
	for i := range grants {
		grants[i].Status = grants[i].EffectiveStatus(now)
	}
	return grants, nil
}

func (u ListAuthoritiesUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
