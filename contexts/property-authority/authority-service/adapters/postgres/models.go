package postgresadapter

import (
	"encoding/json"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
)

type partyModel struct {
	PartyID     string `gorm:"column:party_id;primaryKey"`
	OrgID       string `gorm:"column:org_id"`
	DisplayName string `gorm:"column:display_name"`
	IsActive    bool   `gorm:"column:is_active"`
}

func (partyModel) TableName() string { return "parties" }

func (m partyModel) toEntity() entities.Party {
	return entities.Party{
		PartyID:     m.PartyID,
		OrgID:       m.OrgID,
		DisplayName: m.DisplayName,
		IsActive:    m.IsActive,
	}
}

type ownershipModel struct {
	OwnershipID      string     `gorm:"column:ownership_id;primaryKey"`
	OrgID            string     `gorm:"column:org_id"`
	PropertyID       string     `gorm:"column:property_id"`
	PartyID          string     `gorm:"column:party_id"`
	Role             string     `gorm:"column:role"`
	Status           string     `gorm:"column:status"`
	OwnershipPercent *float64   `gorm:"column:ownership_percent"`
	IsPrimaryContact bool       `gorm:"column:is_primary_contact"`
	EffectiveFrom    time.Time  `gorm:"column:effective_from"`
	EffectiveTo      *time.Time `gorm:"column:effective_to"`
	Notes            string     `gorm:"column:notes"`
	VerifiedAt       *time.Time `gorm:"column:verified_at"`
	VerifiedBy       string     `gorm:"column:verified_by"`
	DeletedAt        *time.Time `gorm:"column:deleted_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (ownershipModel) TableName() string { return "property_ownerships" }

func (m ownershipModel) toEntity() entities.Ownership {
	return entities.Ownership{
		OwnershipID:      m.OwnershipID,
		OrgID:            m.OrgID,
		PropertyID:       m.PropertyID,
		PartyID:          m.PartyID,
		Role:             entities.OwnershipRole(m.Role),
		Status:           entities.OwnershipStatus(m.Status),
		OwnershipPercent: m.OwnershipPercent,
		IsPrimaryContact: m.IsPrimaryContact,
		EffectiveFrom:    m.EffectiveFrom.UTC(),
		EffectiveTo:      normalizeOptionalTime(m.EffectiveTo),
		Notes:            m.Notes,
		VerifiedAt:       normalizeOptionalTime(m.VerifiedAt),
		VerifiedBy:       m.VerifiedBy,
		DeletedAt:        normalizeOptionalTime(m.DeletedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func ownershipModelFromEntity(ownership entities.Ownership) ownershipModel {
	return ownershipModel{
		OwnershipID:      ownership.OwnershipID,
		OrgID:            ownership.OrgID,
		PropertyID:       ownership.PropertyID,
		PartyID:          ownership.PartyID,
		Role:             string(ownership.Role),
		Status:           string(ownership.Status),
		OwnershipPercent: ownership.OwnershipPercent,
		IsPrimaryContact: ownership.IsPrimaryContact,
		EffectiveFrom:    ownership.EffectiveFrom.UTC(),
		EffectiveTo:      normalizeOptionalTime(ownership.EffectiveTo),
		Notes:            ownership.Notes,
		VerifiedAt:       normalizeOptionalTime(ownership.VerifiedAt),
		VerifiedBy:       ownership.VerifiedBy,
		DeletedAt:        normalizeOptionalTime(ownership.DeletedAt),
		CreatedAt:        ownership.CreatedAt.UTC(),
		UpdatedAt:        ownership.UpdatedAt.UTC(),
	}
}

type grantModel struct {
	GrantID           string     `gorm:"column:grant_id;primaryKey"`
	OrgID             string     `gorm:"column:org_id"`
	OwnershipID       string     `gorm:"column:ownership_id"`
	DelegatePartyID   string     `gorm:"column:delegate_party_id"`
	AuthorityType     string     `gorm:"column:authority_type"`
	Status            string     `gorm:"column:status"`
	MonetaryLimit     *float64   `gorm:"column:monetary_limit"`
	ScopeDescription  string     `gorm:"column:scope_description"`
	ScopeRestrictions []byte     `gorm:"column:scope_restrictions;type:jsonb"`
	ExpiresAt         *time.Time `gorm:"column:expires_at"`
	GrantedAt         time.Time  `gorm:"column:granted_at"`
	GrantedBy         string     `gorm:"column:granted_by"`
	AcceptedAt        *time.Time `gorm:"column:accepted_at"`
	RevokedAt         *time.Time `gorm:"column:revoked_at"`
	RevokedBy         string     `gorm:"column:revoked_by"`
	RevokeReason      string     `gorm:"column:revoke_reason"`
}

func (grantModel) TableName() string { return "delegated_authorities" }

func (m grantModel) toEntity() (entities.DelegatedAuthority, error) {
	var restrictions map[string]any
	if len(m.ScopeRestrictions) > 0 {
		if err := json.Unmarshal(m.ScopeRestrictions, &restrictions); err != nil {
			return entities.DelegatedAuthority{}, err
		}
	}
	return entities.DelegatedAuthority{
		GrantID:           m.GrantID,
		OrgID:             m.OrgID,
		OwnershipID:       m.OwnershipID,
		DelegatePartyID:   m.DelegatePartyID,
		AuthorityType:     entities.AuthorityType(m.AuthorityType),
		Status:            entities.GrantStatus(m.Status),
		MonetaryLimit:     m.MonetaryLimit,
		ScopeDescription:  m.ScopeDescription,
		ScopeRestrictions: restrictions,
		ExpiresAt:         normalizeOptionalTime(m.ExpiresAt),
		GrantedAt:         m.GrantedAt.UTC(),
		GrantedBy:         m.GrantedBy,
		AcceptedAt:        normalizeOptionalTime(m.AcceptedAt),
		RevokedAt:         normalizeOptionalTime(m.RevokedAt),
		RevokedBy:         m.RevokedBy,
		RevokeReason:      m.RevokeReason,
	}, nil
}

func grantModelFromEntity(grant entities.DelegatedAuthority) (grantModel, error) {
	var restrictions []byte
	if len(grant.ScopeRestrictions) > 0 {
		encoded, err := json.Marshal(grant.ScopeRestrictions)
		if err != nil {
			return grantModel{}, err
		}
		restrictions = encoded
	}
	return grantModel{
		GrantID:           grant.GrantID,
		OrgID:             grant.OrgID,
		OwnershipID:       grant.OwnershipID,
		DelegatePartyID:   grant.DelegatePartyID,
		AuthorityType:     string(grant.AuthorityType),
		Status:            string(grant.Status),
		MonetaryLimit:     grant.MonetaryLimit,
		ScopeDescription:  grant.ScopeDescription,
		ScopeRestrictions: restrictions,
		ExpiresAt:         normalizeOptionalTime(grant.ExpiresAt),
		GrantedAt:         grant.GrantedAt.UTC(),
		GrantedBy:         grant.GrantedBy,
		AcceptedAt:        normalizeOptionalTime(grant.AcceptedAt),
		RevokedAt:         normalizeOptionalTime(grant.RevokedAt),
		RevokedBy:         grant.RevokedBy,
		RevokeReason:      grant.RevokeReason,
	}, nil
}

type auditLogModel struct {
	AuditLogID string    `gorm:"column:audit_log_id;primaryKey"`
	OrgID      string    `gorm:"column:org_id"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id"`
	Action     string    `gorm:"column:action"`
	ActorID    string    `gorm:"column:actor_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "authority_audit_log" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload;type:jsonb"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "authority_outbox" }

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	Operation       string    `gorm:"column:operation"`
	RequestHash     string    `gorm:"column:request_hash"`
	Status          string    `gorm:"column:status"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ErrorCode       string    `gorm:"column:error_code"`
	ClaimExpiresAt  time.Time `gorm:"column:claim_expires_at"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "authority_idempotency" }

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
