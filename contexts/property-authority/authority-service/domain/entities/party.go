package entities

// Party is the minimal view of an organization member this module needs:
// enough to assert that a delegate exists inside the caller's tenant.
type Party struct {
	PartyID     string `json:"party_id"`
	OrgID       string `json:"org_id"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
}
