package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
	contractsv1 "mandata/contracts/gen/events/v1"
	"mandata/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeOwnershipWhere is the shared effectively-active predicate for
// ownership rows, mirroring entities.Ownership.IsActive.
const activeOwnershipWhere = "status = 'ACTIVE' AND deleted_at IS NULL AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)"

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetParty(ctx context.Context, orgID string, partyID string) (entities.Party, error) {
	var row partyModel
	err := r.db.WithContext(ctx).
		Where("party_id = ? AND org_id = ?", strings.TrimSpace(partyID), strings.TrimSpace(orgID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Party{}, domainerrors.ErrPartyNotFound
		}
		return entities.Party{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateOwnership(ctx context.Context, input ports.CreateOwnershipInput) (ports.OwnershipMutationResult, error) {
	result := ports.OwnershipMutationResult{}
	now := input.CreatedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var duplicates int64
		if err := tx.Model(&ownershipModel{}).
			Where("org_id = ? AND property_id = ? AND party_id = ? AND role = ? AND deleted_at IS NULL",
				input.OrgID, input.PropertyID, input.PartyID, string(input.Role)).
			Count(&duplicates).
			Error; err != nil {
			return err
		}
		if duplicates > 0 {
			return domainerrors.ErrDuplicateOwnership
		}

		if input.Role != entities.OwnershipRoleOwner {
			count, err := lockActiveOwners(tx, input.OrgID, input.PropertyID, now, "")
			if err != nil {
				return err
			}
			if count == 0 {
				return domainerrors.ErrNoActiveOwner
			}
		}

		row := ownershipModelFromEntity(entities.Ownership{
			OwnershipID:      input.OwnershipID,
			OrgID:            input.OrgID,
			PropertyID:       input.PropertyID,
			PartyID:          input.PartyID,
			Role:             input.Role,
			Status:           entities.OwnershipStatusActive,
			OwnershipPercent: input.OwnershipPercent,
			IsPrimaryContact: input.IsPrimaryContact,
			EffectiveFrom:    input.EffectiveFrom,
			Notes:            input.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateOwnership
			}
			return err
		}

		ownership := row.toEntity()
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "created", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "ownership.created", ownership.OwnershipID, ownership, now); err != nil {
			return err
		}
		result = ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) GetOwnership(ctx context.Context, orgID string, ownershipID string) (entities.Ownership, error) {
	var row ownershipModel
	err := r.db.WithContext(ctx).
		Where("ownership_id = ? AND org_id = ? AND deleted_at IS NULL", strings.TrimSpace(ownershipID), strings.TrimSpace(orgID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ownership{}, domainerrors.ErrOwnershipNotFound
		}
		return entities.Ownership{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListOwnerships(ctx context.Context, filter ports.OwnershipFilter) ([]entities.Ownership, error) {
	tx := r.db.WithContext(ctx).Model(&ownershipModel{}).
		Where("org_id = ? AND deleted_at IS NULL", filter.OrgID)
	if filter.PropertyID != "" {
		tx = tx.Where("property_id = ?", filter.PropertyID)
	}
	if filter.PartyID != "" {
		tx = tx.Where("party_id = ?", filter.PartyID)
	}
	if !filter.IncludeTerminated {
		tx = tx.Where("status <> ?", string(entities.OwnershipStatusTerminated))
	}

	var rows []ownershipModel
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Ownership, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateOwnership(ctx context.Context, input ports.UpdateOwnershipInput) (ports.OwnershipMutationResult, error) {
	result := ports.OwnershipMutationResult{}
	now := input.UpdatedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockOwnership(tx, input.OrgID, input.OwnershipID)
		if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": now}
		if input.OwnershipPercent != nil {
			updates["ownership_percent"] = *input.OwnershipPercent
		}
		if input.IsPrimaryContact != nil {
			updates["is_primary_contact"] = *input.IsPrimaryContact
		}
		if input.EffectiveTo != nil {
			updates["effective_to"] = input.EffectiveTo.UTC()
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if err := tx.Model(&ownershipModel{}).
			Where("ownership_id = ?", row.OwnershipID).
			Updates(updates).
			Error; err != nil {
			return err
		}

		var updated ownershipModel
		if err := tx.Where("ownership_id = ?", row.OwnershipID).First(&updated).Error; err != nil {
			return err
		}
		ownership := updated.toEntity()
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "updated", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "ownership.updated", ownership.OwnershipID, ownership, now); err != nil {
			return err
		}
		result = ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) VerifyOwnership(ctx context.Context, input ports.VerifyOwnershipInput) (ports.OwnershipMutationResult, error) {
	result := ports.OwnershipMutationResult{}
	now := input.VerifiedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockOwnership(tx, input.OrgID, input.OwnershipID)
		if err != nil {
			return err
		}
		if row.VerifiedAt != nil {
			return domainerrors.ErrOwnershipVerified
		}

		if err := tx.Model(&ownershipModel{}).
			Where("ownership_id = ?", row.OwnershipID).
			Updates(map[string]any{
				"verified_at": now,
				"verified_by": input.ActorID,
				"updated_at":  now,
			}).
			Error; err != nil {
			return err
		}

		row.VerifiedAt = &now
		row.VerifiedBy = input.ActorID
		row.UpdatedAt = now
		ownership := row.toEntity()
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "verified", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "ownership.verified", ownership.OwnershipID, ownership, now); err != nil {
			return err
		}
		result = ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) TerminateOwnership(ctx context.Context, input ports.TerminateOwnershipInput) (ports.OwnershipMutationResult, error) {
	result := ports.OwnershipMutationResult{}
	now := input.EffectiveTo.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockOwnership(tx, input.OrgID, input.OwnershipID)
		if err != nil {
			return err
		}
		if row.Status == string(entities.OwnershipStatusTerminated) {
			return domainerrors.ErrOwnershipTerminated
		}

		ownership := row.toEntity()
		if ownership.Role == entities.OwnershipRoleOwner && ownership.IsActive(now) {
			others, err := lockActiveOwners(tx, input.OrgID, ownership.PropertyID, now, ownership.OwnershipID)
			if err != nil {
				return err
			}
			if others == 0 {
				return domainerrors.ErrLastActiveOwner
			}
		}

		if err := tx.Model(&ownershipModel{}).
			Where("ownership_id = ?", row.OwnershipID).
			Updates(map[string]any{
				"status":       string(entities.OwnershipStatusTerminated),
				"effective_to": now,
				"updated_at":   now,
			}).
			Error; err != nil {
			return err
		}

		ownership.Status = entities.OwnershipStatusTerminated
		ownership.EffectiveTo = &now
		ownership.UpdatedAt = now
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "terminated", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "ownership.terminated", ownership.OwnershipID, ownership, now); err != nil {
			return err
		}
		result = ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) DeleteOwnership(ctx context.Context, input ports.DeleteOwnershipInput) (ports.OwnershipMutationResult, error) {
	result := ports.OwnershipMutationResult{}
	now := input.DeletedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockOwnership(tx, input.OrgID, input.OwnershipID)
		if err != nil {
			return err
		}

		ownership := row.toEntity()
		if ownership.Role == entities.OwnershipRoleOwner && ownership.IsActive(now) {
			others, err := lockActiveOwners(tx, input.OrgID, ownership.PropertyID, now, ownership.OwnershipID)
			if err != nil {
				return err
			}
			if others == 0 {
				return domainerrors.ErrLastActiveOwner
			}
		}

		if err := tx.Model(&ownershipModel{}).
			Where("ownership_id = ?", row.OwnershipID).
			Updates(map[string]any{
				"deleted_at": now,
				"updated_at": now,
			}).
			Error; err != nil {
			return err
		}

		ownership.DeletedAt = &now
		ownership.UpdatedAt = now
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "deleted", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "ownership.deleted", ownership.OwnershipID, ownership, now); err != nil {
			return err
		}
		result = ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) CreateGrant(ctx context.Context, input ports.CreateGrantInput) (ports.GrantMutationResult, error) {
	result := ports.GrantMutationResult{}
	now := input.GrantedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOwnership(tx, input.OrgID, input.OwnershipID); err != nil {
			return err
		}

		var existing []grantModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ? AND ownership_id = ? AND delegate_party_id = ? AND authority_type = ? AND status IN ?",
				input.OrgID, input.OwnershipID, input.DelegatePartyID, string(input.AuthorityType),
				[]string{string(entities.GrantStatusPendingAcceptance), string(entities.GrantStatusActive)}).
			Find(&existing).
			Error; err != nil {
			return err
		}
		for _, candidate := range existing {
			grant, err := candidate.toEntity()
			if err != nil {
				return err
			}
			if grant.OccupiesTriple(now) {
				return domainerrors.ErrDuplicateGrant
			}
		}

		row, err := grantModelFromEntity(entities.DelegatedAuthority{
			GrantID:           input.GrantID,
			OrgID:             input.OrgID,
			OwnershipID:       input.OwnershipID,
			DelegatePartyID:   input.DelegatePartyID,
			AuthorityType:     input.AuthorityType,
			Status:            entities.GrantStatusPendingAcceptance,
			MonetaryLimit:     input.MonetaryLimit,
			ScopeDescription:  input.ScopeDescription,
			ScopeRestrictions: input.ScopeRestrictions,
			ExpiresAt:         input.ExpiresAt,
			GrantedAt:         now,
			GrantedBy:         input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateGrant
			}
			return err
		}

		grant, err := row.toEntity()
		if err != nil {
			return err
		}
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "grant", grant.GrantID, "granted", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "authority.granted", grant.GrantID, grant, now); err != nil {
			return err
		}
		result = ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.GrantMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) GetGrant(ctx context.Context, orgID string, grantID string) (entities.DelegatedAuthority, error) {
	var row grantModel
	err := r.db.WithContext(ctx).
		Where("grant_id = ? AND org_id = ?", strings.TrimSpace(grantID), strings.TrimSpace(orgID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegatedAuthority{}, domainerrors.ErrGrantNotFound
		}
		return entities.DelegatedAuthority{}, err
	}
	return row.toEntity()
}

func (r *Repository) ListGrants(ctx context.Context, filter ports.GrantFilter) ([]entities.DelegatedAuthority, error) {
	tx := r.db.WithContext(ctx).Model(&grantModel{}).
		Where("delegated_authorities.org_id = ?", filter.OrgID)
	if filter.OwnershipID != "" {
		tx = tx.Where("delegated_authorities.ownership_id = ?", filter.OwnershipID)
	}
	if filter.DelegatePartyID != "" {
		tx = tx.Where("delegated_authorities.delegate_party_id = ?", filter.DelegatePartyID)
	}
	if filter.PropertyID != "" {
		tx = tx.Joins("JOIN property_ownerships ON property_ownerships.ownership_id = delegated_authorities.ownership_id").
			Where("property_ownerships.property_id = ?", filter.PropertyID)
	}

	var rows []grantModel
	if err := tx.Order("delegated_authorities.granted_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.DelegatedAuthority, 0, len(rows))
	for _, row := range rows {
		grant, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, grant)
	}
	return items, nil
}

func (r *Repository) AcceptGrant(ctx context.Context, input ports.AcceptGrantInput) (ports.GrantMutationResult, error) {
	result := ports.GrantMutationResult{}
	now := input.AcceptedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant, err := lockGrant(tx, input.OrgID, input.GrantID)
		if err != nil {
			return err
		}
		if grant.EffectiveStatus(now) != entities.GrantStatusPendingAcceptance {
			return domainerrors.ErrGrantNotPending
		}

		if err := tx.Model(&grantModel{}).
			Where("grant_id = ?", grant.GrantID).
			Updates(map[string]any{
				"status":      string(entities.GrantStatusActive),
				"accepted_at": now,
			}).
			Error; err != nil {
			return err
		}

		grant.Status = entities.GrantStatusActive
		grant.AcceptedAt = &now
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "grant", grant.GrantID, "accepted", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "authority.accepted", grant.GrantID, grant, now); err != nil {
			return err
		}
		result = ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.GrantMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) RevokeGrant(ctx context.Context, input ports.RevokeGrantInput) (ports.GrantMutationResult, error) {
	result := ports.GrantMutationResult{}
	now := input.RevokedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant, err := lockGrant(tx, input.OrgID, input.GrantID)
		if err != nil {
			return err
		}
		switch grant.EffectiveStatus(now) {
		case entities.GrantStatusPendingAcceptance, entities.GrantStatusActive:
		default:
			return domainerrors.ErrGrantNotRevocable
		}

		if err := tx.Model(&grantModel{}).
			Where("grant_id = ?", grant.GrantID).
			Updates(map[string]any{
				"status":        string(entities.GrantStatusRevoked),
				"revoked_at":    now,
				"revoked_by":    input.ActorID,
				"revoke_reason": input.Reason,
			}).
			Error; err != nil {
			return err
		}

		grant.Status = entities.GrantStatusRevoked
		grant.RevokedAt = &now
		grant.RevokedBy = input.ActorID
		grant.RevokeReason = input.Reason
		if err := appendAudit(tx, input.AuditLogID, input.OrgID, "grant", grant.GrantID, "revoked", input.ActorID, now); err != nil {
			return err
		}
		if err := appendOutbox(tx, input.OutboxID, "authority.revoked", grant.GrantID, grant, now); err != nil {
			return err
		}
		result = ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}
		return nil
	})
	if err != nil {
		return ports.GrantMutationResult{}, err
	}
	return result, nil
}

func (r *Repository) FindOwnerRole(ctx context.Context, orgID string, propertyID string, partyID string, now time.Time) (entities.Ownership, bool, error) {
	instant := now.UTC()
	var row ownershipModel
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND property_id = ? AND party_id = ?", orgID, propertyID, partyID).
		Where("role IN ?", []string{string(entities.OwnershipRoleOwner), string(entities.OwnershipRoleCoOwner)}).
		Where(activeOwnershipWhere, instant, instant).
		Order("CASE WHEN role = 'OWNER' THEN 0 ELSE 1 END").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ownership{}, false, nil
		}
		return entities.Ownership{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) FindEffectiveGrant(ctx context.Context, orgID string, propertyID string, partyID string, authorityType entities.AuthorityType, now time.Time) (entities.DelegatedAuthority, bool, error) {
	instant := now.UTC()
	var row grantModel
	err := r.db.WithContext(ctx).Model(&grantModel{}).
		Joins("JOIN property_ownerships ON property_ownerships.ownership_id = delegated_authorities.ownership_id").
		Where("delegated_authorities.org_id = ? AND delegated_authorities.delegate_party_id = ? AND delegated_authorities.authority_type = ?",
			orgID, partyID, string(authorityType)).
		Where("delegated_authorities.status = ?", string(entities.GrantStatusActive)).
		Where("delegated_authorities.expires_at IS NULL OR delegated_authorities.expires_at > ?", instant).
		Where("property_ownerships.property_id = ?", propertyID).
		Where("property_ownerships.status = 'ACTIVE' AND property_ownerships.deleted_at IS NULL").
		Where("property_ownerships.effective_from <= ? AND (property_ownerships.effective_to IS NULL OR property_ownerships.effective_to > ?)", instant, instant).
		Order("delegated_authorities.granted_at ASC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegatedAuthority{}, false, nil
		}
		return entities.DelegatedAuthority{}, false, err
	}
	grant, err := row.toEntity()
	if err != nil {
		return entities.DelegatedAuthority{}, false, err
	}
	return grant, true, nil
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if row.Status != ports.IdempotencyStatusInFlight &&
		!row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", row.Key).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return ports.IdempotencyRecord{
		Key:             row.Key,
		Operation:       row.Operation,
		RequestHash:     row.RequestHash,
		Status:          row.Status,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ErrorCode:       row.ErrorCode,
		ClaimExpiresAt:  row.ClaimExpiresAt.UTC(),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) ClaimRecord(ctx context.Context, record ports.IdempotencyRecord, now time.Time) (bool, error) {
	row := idempotencyModel{
		Key:            strings.TrimSpace(record.Key),
		Operation:      record.Operation,
		RequestHash:    record.RequestHash,
		Status:         ports.IdempotencyStatusInFlight,
		ClaimExpiresAt: record.ClaimExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return true, nil
	}

	// Take over an in-flight claim whose deadline passed (crash recovery).
	takeover := r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("key = ? AND status = ? AND claim_expires_at <= ?", row.Key, ports.IdempotencyStatusInFlight, now.UTC()).
		Updates(map[string]any{
			"operation":        row.Operation,
			"request_hash":     row.RequestHash,
			"claim_expires_at": row.ClaimExpiresAt,
		})
	if takeover.Error != nil {
		return false, takeover.Error
	}
	return takeover.RowsAffected > 0, nil
}

func (r *Repository) CompleteRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	return r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("key = ?", strings.TrimSpace(record.Key)).
		Updates(map[string]any{
			"status":           record.Status,
			"response_payload": record.ResponsePayload,
			"error_code":       record.ErrorCode,
			"expires_at":       record.ExpiresAt.UTC(),
		}).
		Error
}

func (r *Repository) ReleaseClaim(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("key = ? AND status = ?", strings.TrimSpace(key), ports.IdempotencyStatusInFlight).
		Delete(&idempotencyModel{}).
		Error
}

func (r *Repository) ReleaseExpiredClaims(ctx context.Context, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND claim_expires_at <= ?", ports.IdempotencyStatusInFlight, now.UTC()).
		Delete(&idempotencyModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) PurgeExpiredRecords(ctx context.Context, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Where("status <> ? AND expires_at <= ?", ports.IdempotencyStatusInFlight, now.UTC()).
		Delete(&idempotencyModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	stamp := publishedAt.UTC()
	return r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": stamp,
		}).
		Error
}

func lockOwnership(tx *gorm.DB, orgID string, ownershipID string) (ownershipModel, error) {
	var row ownershipModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ownership_id = ? AND org_id = ? AND deleted_at IS NULL", strings.TrimSpace(ownershipID), strings.TrimSpace(orgID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ownershipModel{}, domainerrors.ErrOwnershipNotFound
		}
		return ownershipModel{}, err
	}
	return row, nil
}

func lockGrant(tx *gorm.DB, orgID string, grantID string) (entities.DelegatedAuthority, error) {
	var row grantModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("grant_id = ? AND org_id = ?", strings.TrimSpace(grantID), strings.TrimSpace(orgID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegatedAuthority{}, domainerrors.ErrGrantNotFound
		}
		return entities.DelegatedAuthority{}, err
	}
	return row.toEntity()
}

// lockActiveOwners locks the active OWNER rows of a property and returns how
// many exist besides excludeID. The lock serializes concurrent last-owner
// checks on the same property.
func lockActiveOwners(tx *gorm.DB, orgID string, propertyID string, now time.Time, excludeID string) (int, error) {
	instant := now.UTC()
	query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND property_id = ? AND role = ?", orgID, propertyID, string(entities.OwnershipRoleOwner)).
		Where(activeOwnershipWhere, instant, instant)
	if excludeID != "" {
		query = query.Where("ownership_id <> ?", excludeID)
	}
	var rows []ownershipModel
	if err := query.Find(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

func appendAudit(tx *gorm.DB, auditLogID string, orgID string, entityType string, entityID string, action string, actorID string, createdAt time.Time) error {
	row := auditLogModel{
		AuditLogID: auditLogID,
		OrgID:      orgID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		CreatedAt:  createdAt.UTC(),
	}
	return tx.Create(&row).Error
}

func appendOutbox(tx *gorm.DB, outboxID string, eventType string, entityID string, entity any, createdAt time.Time) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	envelope := contractsv1.Envelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		OccurredAt:       createdAt.UTC(),
		SourceService:    "property-authority/authority-service",
		SchemaVersion:    1,
		PartitionKeyPath: "entity_id",
		PartitionKey:     entityID,
		Data:             data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  outboxID,
		EventType: eventType,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: createdAt.UTC(),
	}
	return tx.Create(&row).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
