package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateOwnershipRequest struct {
	PropertyID       string   `json:"property_id"`
	PartyID          string   `json:"party_id"`
	Role             string   `json:"role"`
	OwnershipPercent *float64 `json:"ownership_percent,omitempty"`
	IsPrimaryContact bool     `json:"is_primary_contact,omitempty"`
	EffectiveFrom    string   `json:"effective_from,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

type UpdateOwnershipRequest struct {
	OwnershipPercent *float64 `json:"ownership_percent,omitempty"`
	IsPrimaryContact *bool    `json:"is_primary_contact,omitempty"`
	EffectiveTo      *string  `json:"effective_to,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
}

type OwnershipDTO struct {
	OwnershipID      string   `json:"ownership_id"`
	OrgID            string   `json:"org_id"`
	PropertyID       string   `json:"property_id"`
	PartyID          string   `json:"party_id"`
	Role             string   `json:"role"`
	Status           string   `json:"status"`
	OwnershipPercent *float64 `json:"ownership_percent,omitempty"`
	IsPrimaryContact bool     `json:"is_primary_contact"`
	EffectiveFrom    string   `json:"effective_from"`
	EffectiveTo      string   `json:"effective_to,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	VerifiedAt       string   `json:"verified_at,omitempty"`
	VerifiedBy       string   `json:"verified_by,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type OwnershipResponse struct {
	Status     string       `json:"status"`
	Replayed   bool         `json:"replayed,omitempty"`
	AuditLogID string       `json:"audit_log_id,omitempty"`
	Data       OwnershipDTO `json:"data"`
}

type OwnershipListResponse struct {
	Status string         `json:"status"`
	Data   []OwnershipDTO `json:"data"`
}

type GrantAuthorityRequest struct {
	OwnershipID       string         `json:"ownership_id"`
	DelegatePartyID   string         `json:"delegate_party_id"`
	AuthorityType     string         `json:"authority_type"`
	MonetaryLimit     *float64       `json:"monetary_limit,omitempty"`
	ScopeDescription  string         `json:"scope_description,omitempty"`
	ScopeRestrictions map[string]any `json:"scope_restrictions,omitempty"`
	ExpiresAt         string         `json:"expires_at,omitempty"`
}

type RevokeAuthorityRequest struct {
	Reason string `json:"reason,omitempty"`
}

type GrantDTO struct {
	GrantID           string         `json:"grant_id"`
	OrgID             string         `json:"org_id"`
	OwnershipID       string         `json:"ownership_id"`
	DelegatePartyID   string         `json:"delegate_party_id"`
	AuthorityType     string         `json:"authority_type"`
	Status            string         `json:"status"`
	MonetaryLimit     *float64       `json:"monetary_limit,omitempty"`
	ScopeDescription  string         `json:"scope_description,omitempty"`
	ScopeRestrictions map[string]any `json:"scope_restrictions,omitempty"`
	ExpiresAt         string         `json:"expires_at,omitempty"`
	GrantedAt         string         `json:"granted_at"`
	GrantedBy         string         `json:"granted_by"`
	AcceptedAt        string         `json:"accepted_at,omitempty"`
	RevokedAt         string         `json:"revoked_at,omitempty"`
	RevokedBy         string         `json:"revoked_by,omitempty"`
	RevokeReason      string         `json:"revoke_reason,omitempty"`
}

type GrantResponse struct {
	Status     string   `json:"status"`
	Replayed   bool     `json:"replayed,omitempty"`
	AuditLogID string   `json:"audit_log_id,omitempty"`
	Data       GrantDTO `json:"data"`
}

type GrantListResponse struct {
	Status string     `json:"status"`
	Data   []GrantDTO `json:"data"`
}

type ResolveAuthorityRequest struct {
	PropertyID    string   `json:"property_id"`
	PartyID       string   `json:"party_id"`
	AuthorityType string   `json:"authority_type"`
	Amount        *float64 `json:"amount,omitempty"`
}

type AuthorityDecisionDTO struct {
	PropertyID    string   `json:"property_id"`
	PartyID       string   `json:"party_id"`
	AuthorityType string   `json:"authority_type"`
	HasAuthority  bool     `json:"has_authority"`
	Source        string   `json:"source"`
	GrantID       string   `json:"grant_id,omitempty"`
	MonetaryLimit *float64 `json:"monetary_limit,omitempty"`
	WithinLimit   *bool    `json:"within_limit,omitempty"`
	CheckedAt     string   `json:"checked_at"`
}

type ResolveAuthorityResponse struct {
	Status string               `json:"status"`
	Data   AuthorityDecisionDTO `json:"data"`
}
