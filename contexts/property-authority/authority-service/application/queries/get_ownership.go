package queries

import (
	"context"
	"log/slog"
	"strings"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
)

// GetOwnershipQuery fetches one ownership inside the caller's tenant.
type GetOwnershipQuery struct {
	OrgID       string
	OwnershipID string
}

type GetOwnershipUseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (u GetOwnershipUseCase) Execute(ctx context.Context, query GetOwnershipQuery) (entities.Ownership, error) {
	if strings.TrimSpace(query.OrgID) == "" || strings.TrimSpace(query.OwnershipID) == "" {
		return entities.Ownership{}, domainerrors.ErrInvalidOwnershipInput
	}
	return u.Repository.GetOwnership(ctx, query.OrgID, query.OwnershipID)
}
