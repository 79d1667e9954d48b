package queries

import (
	"context"
	"log/slog"
	"strings"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// ListOwnershipsQuery narrows the ownership listing by property and/or party.
type ListOwnershipsQuery struct {
	OrgID             string
	PropertyID        string
	PartyID           string
	IncludeTerminated bool
}

type ListOwnershipsUseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (u ListOwnershipsUseCase) Execute(ctx context.Context, query ListOwnershipsQuery) ([]entities.Ownership, error) {
	if strings.TrimSpace(query.OrgID) == "" {
		return nil, domainerrors.ErrInvalidOwnershipInput
	}
	return u.Repository.ListOwnerships(ctx, ports.OwnershipFilter{
		OrgID:             query.OrgID,
		PropertyID:        strings.TrimSpace(query.PropertyID),
		PartyID:           strings.TrimSpace(query.PartyID),
		IncludeTerminated: query.IncludeTerminated,
	})
}
