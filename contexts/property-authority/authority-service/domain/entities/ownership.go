package entities

import "time"

// OwnershipRole classifies a party's relationship to a property.
type OwnershipRole string

const (
	OwnershipRoleOwner   OwnershipRole = "OWNER"
	OwnershipRoleCoOwner OwnershipRole = "CO_OWNER"
	OwnershipRoleManager OwnershipRole = "MANAGER"
	OwnershipRoleAgent   OwnershipRole = "AGENT"
)

// OwnershipStatus is the persisted lifecycle status of an ownership record.
type OwnershipStatus string

const (
	OwnershipStatusActive     OwnershipStatus = "ACTIVE"
	OwnershipStatusTerminated OwnershipStatus = "TERMINATED"
)

// Ownership is a party's recorded relationship/role over a property inside one organization.
type Ownership struct {
	OwnershipID      string          `json:"ownership_id"`
	OrgID            string          `json:"org_id"`
	PropertyID       string          `json:"property_id"`
	PartyID          string          `json:"party_id"`
	Role             OwnershipRole   `json:"role"`
	Status           OwnershipStatus `json:"status"`
	OwnershipPercent *float64        `json:"ownership_percent,omitempty"`
	IsPrimaryContact bool            `json:"is_primary_contact"`
	EffectiveFrom    time.Time       `json:"effective_from"`
	EffectiveTo      *time.Time      `json:"effective_to,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy       string          `json:"verified_by,omitempty"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ValidRole reports whether the role is one of the recognized ownership roles.
func ValidRole(role OwnershipRole) bool {
	switch role {
	case OwnershipRoleOwner, OwnershipRoleCoOwner, OwnershipRoleManager, OwnershipRoleAgent:
		return true
	default:
		return false
	}
}

// IsActive reports whether the ownership is live at the given instant:
// status ACTIVE, not soft-deleted, and inside its effective window.
func (o Ownership) IsActive(now time.Time) bool {
	if o.Status != OwnershipStatusActive || o.DeletedAt != nil {
		return false
	}
	if !o.EffectiveFrom.IsZero() && now.Before(o.EffectiveFrom) {
		return false
	}
	if o.EffectiveTo != nil && !now.Before(*o.EffectiveTo) {
		return false
	}
	return true
}

// CanDelegate reports whether this ownership role may grant delegated authority.
func (o Ownership) CanDelegate() bool {
	return o.Role == OwnershipRoleOwner || o.Role == OwnershipRoleCoOwner
}
