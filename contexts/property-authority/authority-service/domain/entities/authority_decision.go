package entities

import "time"

// AuthoritySource names the basis that justifies a positive authority decision.
type AuthoritySource string

const (
	AuthoritySourceOwner     AuthoritySource = "OWNER"
	AuthoritySourceCoOwner   AuthoritySource = "CO_OWNER"
	AuthoritySourceDelegated AuthoritySource = "DELEGATED"
	AuthoritySourceNone      AuthoritySource = "NONE"
)

// AuthorityDecision is the transient output of authority resolution.
// It is computed per request and never persisted or cached.
type AuthorityDecision struct {
	PropertyID    string          `json:"property_id"`
	PartyID       string          `json:"party_id"`
	AuthorityType AuthorityType   `json:"authority_type"`
	HasAuthority  bool            `json:"has_authority"`
	Source        AuthoritySource `json:"source"`
	GrantID       string          `json:"grant_id,omitempty"`
	MonetaryLimit *float64        `json:"monetary_limit,omitempty"`
	// WithinLimit is tri-state: nil means no amount was supplied or no limit
	// applies, so the bound question is unknown/not applicable.
	WithinLimit *bool     `json:"within_limit,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}
