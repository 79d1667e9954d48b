package errors

import "errors"

// Sentinel errors, grouped by taxonomy kind. Tenant misses always surface as
// the not-found sentinels so callers cannot probe for entities in other
// organizations.
var (
	// not found
	ErrOwnershipNotFound = errors.New("ownership not found")
	ErrPartyNotFound     = errors.New("party not found")
	ErrGrantNotFound     = errors.New("grant not found")

	// forbidden
	ErrForbidden        = errors.New("forbidden")
	ErrRoleCannotGrant  = errors.New("ownership role cannot delegate authority")
	ErrNotDelegateParty = errors.New("actor is not the delegate party")

	// invalid argument
	ErrInvalidOwnershipInput = errors.New("invalid ownership input")
	ErrInvalidRole           = errors.New("invalid ownership role")
	ErrInvalidPercent        = errors.New("ownership percentage must be in (0, 100]")
	ErrInvalidAuthorityType  = errors.New("invalid authority type")
	ErrSelfDelegation        = errors.New("cannot delegate authority to the granting party")
	ErrInvalidMonetaryLimit  = errors.New("monetary limit must be strictly positive")
	ErrInvalidExpiry         = errors.New("expiry must be in the future")
	ErrNoActiveOwner         = errors.New("property has no active owner")
	ErrLastActiveOwner       = errors.New("cannot remove the last active owner of a property")

	// invalid state
	ErrGrantNotPending     = errors.New("grant is not pending acceptance")
	ErrGrantNotRevocable   = errors.New("grant is not pending or active")
	ErrOwnershipTerminated = errors.New("ownership is already terminated")
	ErrOwnershipVerified   = errors.New("ownership is already verified")

	// conflict
	ErrDuplicateGrant     = errors.New("an equivalent pending or active grant already exists")
	ErrDuplicateOwnership = errors.New("ownership already exists for this property, party and role")

	// idempotency
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key was used with a different request")
	ErrIdempotencyInFlight    = errors.New("another submission with this idempotency key is in flight")
)

// codes maps stable wire codes to sentinels so cached command failures replay
// as the original error across process restarts.
var codes = map[string]error{
	"ownership_not_found":    ErrOwnershipNotFound,
	"party_not_found":        ErrPartyNotFound,
	"grant_not_found":        ErrGrantNotFound,
	"forbidden":              ErrForbidden,
	"role_cannot_grant":      ErrRoleCannotGrant,
	"not_delegate_party":     ErrNotDelegateParty,
	"invalid_ownership":      ErrInvalidOwnershipInput,
	"invalid_role":           ErrInvalidRole,
	"invalid_percent":        ErrInvalidPercent,
	"invalid_authority_type": ErrInvalidAuthorityType,
	"self_delegation":        ErrSelfDelegation,
	"invalid_monetary_limit": ErrInvalidMonetaryLimit,
	"invalid_expiry":         ErrInvalidExpiry,
	"no_active_owner":        ErrNoActiveOwner,
	"last_active_owner":      ErrLastActiveOwner,
	"grant_not_pending":      ErrGrantNotPending,
	"grant_not_revocable":    ErrGrantNotRevocable,
	"ownership_terminated":   ErrOwnershipTerminated,
	"ownership_verified":     ErrOwnershipVerified,
	"duplicate_grant":        ErrDuplicateGrant,
	"duplicate_ownership":    ErrDuplicateOwnership,
}

// CodeOf returns the stable code for a domain sentinel, if it has one.
func CodeOf(err error) (string, bool) {
	for code, sentinel := range codes {
		if errors.Is(err, sentinel) {
			return code, true
		}
	}
	return "", false
}

// ByCode resolves a stable code back to its sentinel.
func ByCode(code string) (error, bool) {
	err, ok := codes[code]
	return err, ok
}
