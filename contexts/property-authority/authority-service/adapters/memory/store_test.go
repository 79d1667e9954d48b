package memory

import (
	"context"
	"testing"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	"mandata/contexts/property-authority/authority-service/ports"
)

func mustCreateOwnership(t *testing.T, store *Store, ownershipID string, partyID string, role entities.OwnershipRole, now time.Time) entities.Ownership {
	t.Helper()
	result, err := store.CreateOwnership(context.Background(), ports.CreateOwnershipInput{
		OwnershipID:   ownershipID,
		AuditLogID:    "audit-" + ownershipID,
		OutboxID:      "outbox-" + ownershipID,
		OrgID:         "org-1",
		PropertyID:    "prop-1",
		PartyID:       partyID,
		Role:          role,
		EffectiveFrom: now,
		ActorID:       "admin-1",
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("create ownership %s failed: %v", ownershipID, err)
	}
	return result.Ownership
}

func TestFindOwnerRolePrefersOwnerOverCoOwner(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	mustCreateOwnership(t, store, "own-1", "alice", entities.OwnershipRoleOwner, now)
	mustCreateOwnership(t, store, "own-2", "alice", entities.OwnershipRoleCoOwner, now)

	found, ok, err := store.FindOwnerRole(context.Background(), "org-1", "prop-1", "alice", now)
	if err != nil || !ok {
		t.Fatalf("expected owner role, ok=%v err=%v", ok, err)
	}
	if found.Role != entities.OwnershipRoleOwner {
		t.Fatalf("OWNER must win over CO_OWNER, got %s", found.Role)
	}
}

func TestFindOwnerRoleIgnoresInactiveWindows(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	mustCreateOwnership(t, store, "own-1", "alice", entities.OwnershipRoleOwner, now)

	_, ok, err := store.FindOwnerRole(context.Background(), "org-1", "prop-1", "alice", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if ok {
		t.Fatalf("ownership before its effective window must not resolve")
	}
}

func TestFindEffectiveGrantRequiresActiveGrantorOwnership(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	mustCreateOwnership(t, store, "own-1", "alice", entities.OwnershipRoleOwner, now)
	mustCreateOwnership(t, store, "own-2", "carol", entities.OwnershipRoleOwner, now)

	if _, err := store.CreateGrant(context.Background(), ports.CreateGrantInput{
		GrantID:         "grant-1",
		AuditLogID:      "audit-grant-1",
		OutboxID:        "outbox-grant-1",
		OrgID:           "org-1",
		OwnershipID:     "own-1",
		DelegatePartyID: "bob",
		AuthorityType:   entities.AuthorityTypeCollectRent,
		ActorID:         "alice",
		GrantedAt:       now,
	}); err != nil {
		t.Fatalf("create grant failed: %v", err)
	}
	if _, err := store.AcceptGrant(context.Background(), ports.AcceptGrantInput{
		GrantID:    "grant-1",
		AuditLogID: "audit-accept-1",
		OutboxID:   "outbox-accept-1",
		OrgID:      "org-1",
		ActorID:    "bob",
		AcceptedAt: now,
	}); err != nil {
		t.Fatalf("accept grant failed: %v", err)
	}

	_, ok, err := store.FindEffectiveGrant(context.Background(), "org-1", "prop-1", "bob", entities.AuthorityTypeCollectRent, now)
	if err != nil || !ok {
		t.Fatalf("expected effective grant, ok=%v err=%v", ok, err)
	}

	// Terminating the grantor's ownership suspends the delegation.
	if _, err := store.TerminateOwnership(context.Background(), ports.TerminateOwnershipInput{
		OwnershipID: "own-1",
		AuditLogID:  "audit-term-1",
		OutboxID:    "outbox-term-1",
		OrgID:       "org-1",
		ActorID:     "admin-1",
		EffectiveTo: now.Add(time.Second),
	}); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}

	_, ok, err = store.FindEffectiveGrant(context.Background(), "org-1", "prop-1", "bob", entities.AuthorityTypeCollectRent, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if ok {
		t.Fatalf("grant must not be effective once the grantor ownership lapsed")
	}
}

func TestClaimRecordTakesOverExpiredClaim(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	claimed, err := store.ClaimRecord(context.Background(), ports.IdempotencyRecord{
		Key:            "key-1",
		Operation:      "create_ownership",
		RequestHash:    "hash-a",
		Status:         ports.IdempotencyStatusInFlight,
		ClaimExpiresAt: now.Add(30 * time.Second),
	}, now)
	if err != nil || !claimed {
		t.Fatalf("first claim should succeed, claimed=%v err=%v", claimed, err)
	}

	// A live claim is exclusive.
	claimed, err = store.ClaimRecord(context.Background(), ports.IdempotencyRecord{
		Key:            "key-1",
		Operation:      "create_ownership",
		RequestHash:    "hash-a",
		Status:         ports.IdempotencyStatusInFlight,
		ClaimExpiresAt: now.Add(time.Minute),
	}, now.Add(time.Second))
	if err != nil || claimed {
		t.Fatalf("live claim must not be taken over, claimed=%v err=%v", claimed, err)
	}

	// Past the claim deadline the key is up for grabs again.
	claimed, err = store.ClaimRecord(context.Background(), ports.IdempotencyRecord{
		Key:            "key-1",
		Operation:      "create_ownership",
		RequestHash:    "hash-a",
		Status:         ports.IdempotencyStatusInFlight,
		ClaimExpiresAt: now.Add(2 * time.Minute),
	}, now.Add(time.Minute))
	if err != nil || !claimed {
		t.Fatalf("expired claim should be taken over, claimed=%v err=%v", claimed, err)
	}
}

func TestGetRecordDropsExpiredCompletedRecords(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	if err := store.CompleteRecord(context.Background(), ports.IdempotencyRecord{
		Key:             "key-1",
		Operation:       "create_ownership",
		RequestHash:     "hash-a",
		Status:          ports.IdempotencyStatusSucceeded,
		ResponsePayload: []byte(`{}`),
		ExpiresAt:       now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	_, found, err := store.GetRecord(context.Background(), "key-1", now)
	if err != nil || !found {
		t.Fatalf("record should replay inside TTL, found=%v err=%v", found, err)
	}

	_, found, err = store.GetRecord(context.Background(), "key-1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Fatalf("record past TTL must not replay")
	}
}
