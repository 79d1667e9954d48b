package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	authorityservice "mandata/contexts/property-authority/authority-service"
	"mandata/contexts/property-authority/authority-service/application/queries"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	httptransport "mandata/contexts/property-authority/authority-service/transport/http"
)

func resolve(t *testing.T, module authorityservice.Module, orgID string, partyID string, authorityType string, amount *float64) httptransport.AuthorityDecisionDTO {
	t.Helper()
	resp, err := module.Handler.ResolveAuthorityHandler(context.Background(), orgID, httptransport.ResolveAuthorityRequest{
		PropertyID:    "prop-1",
		PartyID:       partyID,
		AuthorityType: authorityType,
		Amount:        amount,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	return resp.Data
}

func TestDelegationLifecycleWithMonetaryLimit(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	limit := 500.0
	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "APPROVE_EXPENSE",
		MonetaryLimit:   &limit,
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if granted.Data.Status != "PENDING_ACCEPTANCE" {
		t.Fatalf("expected pending grant, got %s", granted.Data.Status)
	}

	// A pending grant confers nothing.
	decision := resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", nil)
	if decision.HasAuthority || decision.Source != "NONE" {
		t.Fatalf("pending grant should not confer authority: %+v", decision)
	}

	// Only the delegate party can accept.
	_, err = module.Handler.AcceptAuthorityHandler(ctx, "org-1", "alice", granted.Data.GrantID, "accept-0")
	if !errors.Is(err, domainerrors.ErrNotDelegateParty) {
		t.Fatalf("expected not-delegate-party error, got %v", err)
	}

	accepted, err := module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Data.Status != "ACTIVE" || accepted.Data.AcceptedAt == "" {
		t.Fatalf("unexpected accepted grant: %+v", accepted.Data)
	}

	within := 450.0
	decision = resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", &within)
	if !decision.HasAuthority || decision.Source != "DELEGATED" || decision.GrantID != granted.Data.GrantID {
		t.Fatalf("expected delegated authority within limit: %+v", decision)
	}
	if decision.WithinLimit == nil || !*decision.WithinLimit {
		t.Fatalf("expected within_limit true: %+v", decision)
	}

	over := 600.0
	decision = resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", &over)
	if decision.HasAuthority {
		t.Fatalf("amount over limit should be denied: %+v", decision)
	}
	if decision.WithinLimit == nil || *decision.WithinLimit {
		t.Fatalf("expected within_limit false: %+v", decision)
	}

	// The limit is inclusive.
	exact := 500.0
	decision = resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", &exact)
	if !decision.HasAuthority {
		t.Fatalf("amount equal to limit should pass: %+v", decision)
	}

	// Without an amount the grant answers yes and leaves within_limit unset.
	decision = resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", nil)
	if !decision.HasAuthority || decision.WithinLimit != nil {
		t.Fatalf("amountless resolve should succeed without limit check: %+v", decision)
	}

	revoked, err := module.Handler.RevokeAuthorityHandler(ctx, "org-1", "alice", granted.Data.GrantID, "revoke-1", httptransport.RevokeAuthorityRequest{
		Reason: "engagement ended",
	})
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.Data.Status != "REVOKED" || revoked.Data.RevokeReason != "engagement ended" {
		t.Fatalf("unexpected revoked grant: %+v", revoked.Data)
	}

	decision = resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", nil)
	if decision.HasAuthority {
		t.Fatalf("revoked grant should confer nothing: %+v", decision)
	}
}

func TestMonetaryLimitBoundaryIsInclusive(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	limit := 100.00
	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "APPROVE_EXPENSE",
		MonetaryLimit:   &limit,
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	atLimit := 100.00
	if d := resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", &atLimit); !d.HasAuthority {
		t.Fatalf("100.00 against a 100.00 limit must pass: %+v", d)
	}
	justOver := 100.01
	if d := resolve(t, module, "org-1", "bob", "APPROVE_EXPENSE", &justOver); d.HasAuthority {
		t.Fatalf("100.01 against a 100.00 limit must be denied: %+v", d)
	}
}

func TestOwnerAuthorityIsIntrinsic(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")

	createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	amount := 1_000_000.0
	decision := resolve(t, module, "org-1", "alice", "APPROVE_EXPENSE", &amount)
	if !decision.HasAuthority || decision.Source != "OWNER" {
		t.Fatalf("owner should hold intrinsic authority: %+v", decision)
	}
	if decision.MonetaryLimit != nil || decision.WithinLimit != nil {
		t.Fatalf("intrinsic authority carries no limit: %+v", decision)
	}
}

func TestGrantRejectsOverlappingActiveGrant(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "COLLECT_RENT",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	_, err = module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-2", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "COLLECT_RENT",
	})
	if !errors.Is(err, domainerrors.ErrDuplicateGrant) {
		t.Fatalf("expected duplicate grant error, got %v", err)
	}

	// Revoking the first grant frees the slot.
	if _, err := module.Handler.RevokeAuthorityHandler(ctx, "org-1", "alice", granted.Data.GrantID, "revoke-1", httptransport.RevokeAuthorityRequest{}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-3", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "COLLECT_RENT",
	}); err != nil {
		t.Fatalf("regrant after revoke failed: %v", err)
	}
}

func TestGrantValidationRules(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "mallory")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	_, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "mallory",
		AuthorityType:   "RUN_PAYROLL",
	})
	if !errors.Is(err, domainerrors.ErrInvalidAuthorityType) {
		t.Fatalf("expected invalid authority type, got %v", err)
	}

	negative := -1.0
	_, err = module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-2", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "mallory",
		AuthorityType:   "APPROVE_EXPENSE",
		MonetaryLimit:   &negative,
	})
	if !errors.Is(err, domainerrors.ErrInvalidMonetaryLimit) {
		t.Fatalf("expected invalid monetary limit, got %v", err)
	}

	_, err = module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-3", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "mallory",
		AuthorityType:   "APPROVE_EXPENSE",
		ExpiresAt:       time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	})
	if !errors.Is(err, domainerrors.ErrInvalidExpiry) {
		t.Fatalf("expected invalid expiry, got %v", err)
	}

	_, err = module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-4", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "alice",
		AuthorityType:   "APPROVE_EXPENSE",
	})
	if !errors.Is(err, domainerrors.ErrSelfDelegation) {
		t.Fatalf("expected self delegation error, got %v", err)
	}

	// Managers hold no delegable authority themselves.
	manager, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "own-2", httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "mallory",
		Role:       "MANAGER",
	})
	if err != nil {
		t.Fatalf("create manager failed: %v", err)
	}
	_, err = module.Handler.GrantAuthorityHandler(ctx, "org-1", "mallory", "grant-5", httptransport.GrantAuthorityRequest{
		OwnershipID:     manager.Data.OwnershipID,
		DelegatePartyID: "alice",
		AuthorityType:   "APPROVE_EXPENSE",
	})
	if !errors.Is(err, domainerrors.ErrRoleCannotGrant) {
		t.Fatalf("expected role-cannot-grant error, got %v", err)
	}
}

func TestGrantExpiryIsEffectiveWithoutSweep(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "SIGN_CONTRACT",
		ExpiresAt:       time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if d := resolve(t, module, "org-1", "bob", "SIGN_CONTRACT", nil); !d.HasAuthority {
		t.Fatalf("grant should be effective before expiry: %+v", d)
	}

	module.Store.SetNow(func() time.Time { return time.Now().UTC().Add(2 * time.Hour) })

	if d := resolve(t, module, "org-1", "bob", "SIGN_CONTRACT", nil); d.HasAuthority {
		t.Fatalf("expired grant should confer nothing: %+v", d)
	}

	listed, err := module.Handler.ListAuthoritiesHandler(ctx, queries.ListAuthoritiesQuery{OrgID: "org-1", DelegatePartyID: "bob"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed.Data) != 1 || listed.Data[0].Status != "EXPIRED" {
		t.Fatalf("listing should report expiry eagerly: %+v", listed.Data)
	}
}

func TestAcceptAfterExpiryRejected(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "MANAGE_TENANCY",
		ExpiresAt:       time.Now().UTC().Add(time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	module.Store.SetNow(func() time.Time { return time.Now().UTC().Add(time.Hour) })

	_, err = module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1")
	if !errors.Is(err, domainerrors.ErrGrantNotPending) {
		t.Fatalf("expected grant-not-pending after expiry, got %v", err)
	}
}

func TestRevokeRequiresActiveOrPendingGrant(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "bob")
	ctx := context.Background()

	alice := createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	granted, err := module.Handler.GrantAuthorityHandler(ctx, "org-1", "alice", "grant-1", httptransport.GrantAuthorityRequest{
		OwnershipID:     alice.Data.OwnershipID,
		DelegatePartyID: "bob",
		AuthorityType:   "AUTHORIZE_REPAIRS",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := module.Handler.RevokeAuthorityHandler(ctx, "org-1", "alice", granted.Data.GrantID, "revoke-1", httptransport.RevokeAuthorityRequest{}); err != nil {
		t.Fatalf("revoke of pending grant failed: %v", err)
	}

	_, err = module.Handler.RevokeAuthorityHandler(ctx, "org-1", "alice", granted.Data.GrantID, "revoke-2", httptransport.RevokeAuthorityRequest{})
	if !errors.Is(err, domainerrors.ErrGrantNotRevocable) {
		t.Fatalf("expected grant-not-revocable on second revoke, got %v", err)
	}

	_, err = module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1")
	if !errors.Is(err, domainerrors.ErrGrantNotPending) {
		t.Fatalf("expected grant-not-pending after revoke, got %v", err)
	}
}
