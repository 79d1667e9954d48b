package entities

import "time"

// AuthorityType enumerates the delegable powers over a property.
type AuthorityType string

const (
	AuthorityTypeApproveExpense   AuthorityType = "APPROVE_EXPENSE"
	AuthorityTypeSignContract     AuthorityType = "SIGN_CONTRACT"
	AuthorityTypeManageTenancy    AuthorityType = "MANAGE_TENANCY"
	AuthorityTypeAuthorizeRepairs AuthorityType = "AUTHORIZE_REPAIRS"
	AuthorityTypeCollectRent      AuthorityType = "COLLECT_RENT"
)

// ValidAuthorityType reports whether the value is a recognized authority type.
func ValidAuthorityType(value AuthorityType) bool {
	switch value {
	case AuthorityTypeApproveExpense, AuthorityTypeSignContract, AuthorityTypeManageTenancy,
		AuthorityTypeAuthorizeRepairs, AuthorityTypeCollectRent:
		return true
	default:
		return false
	}
}

// GrantStatus is the persisted lifecycle status of a delegated authority.
type GrantStatus string

const (
	GrantStatusPendingAcceptance GrantStatus = "PENDING_ACCEPTANCE"
	GrantStatusActive            GrantStatus = "ACTIVE"
	GrantStatusRevoked           GrantStatus = "REVOKED"
	GrantStatusExpired           GrantStatus = "EXPIRED"
)

// DelegatedAuthority is a time- and amount-bounded grant of one authority type
// from an ownership (the grantor relationship) to a delegate party.
type DelegatedAuthority struct {
	GrantID           string         `json:"grant_id"`
	OrgID             string         `json:"org_id"`
	OwnershipID       string         `json:"ownership_id"`
	DelegatePartyID   string         `json:"delegate_party_id"`
	AuthorityType     AuthorityType  `json:"authority_type"`
	Status            GrantStatus    `json:"status"`
	MonetaryLimit     *float64       `json:"monetary_limit,omitempty"`
	ScopeDescription  string         `json:"scope_description,omitempty"`
	ScopeRestrictions map[string]any `json:"scope_restrictions,omitempty"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	GrantedAt         time.Time      `json:"granted_at"`
	GrantedBy         string         `json:"granted_by"`
	AcceptedAt        *time.Time     `json:"accepted_at,omitempty"`
	RevokedAt         *time.Time     `json:"revoked_at,omitempty"`
	RevokedBy         string         `json:"revoked_by,omitempty"`
	RevokeReason      string         `json:"revoke_reason,omitempty"`
}

// EffectiveStatus applies lazy expiry: a stored PENDING_ACCEPTANCE or ACTIVE
// grant whose expiry instant has passed reads as EXPIRED without any write.
// Every read path (resolution, lists, gets, state transitions) must go through
// this helper rather than trusting the stored status literally.
func (d DelegatedAuthority) EffectiveStatus(now time.Time) GrantStatus {
	if d.Status == GrantStatusPendingAcceptance || d.Status == GrantStatusActive {
		if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
			return GrantStatusExpired
		}
	}
	return d.Status
}

// IsEffectivelyActive reports whether the grant is live for resolution purposes.
func (d DelegatedAuthority) IsEffectivelyActive(now time.Time) bool {
	return d.EffectiveStatus(now) == GrantStatusActive
}

// OccupiesTriple reports whether the grant still blocks a new grant for the
// same (ownership, delegate, authority type) triple.
func (d DelegatedAuthority) OccupiesTriple(now time.Time) bool {
	switch d.EffectiveStatus(now) {
	case GrantStatusPendingAcceptance, GrantStatusActive:
		return true
	default:
		return false
	}
}
