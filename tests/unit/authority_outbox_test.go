package unit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	authorityservice "mandata/contexts/property-authority/authority-service"
	"mandata/contexts/property-authority/authority-service/ports"
	httptransport "mandata/contexts/property-authority/authority-service/transport/http"
)

func pendingEventTypes(t *testing.T, module authorityservice.Module) []string {
	t.Helper()
	pending, err := module.Store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	types := make([]string, 0, len(pending))
	for _, row := range pending {
		types = append(types, row.EventType)
	}
	return types
}

func TestLifecycleMutationsWriteOutboxEnvelopes(t *testing.T) {
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
	if _, err := module.Handler.AcceptAuthorityHandler(ctx, "org-1", "bob", granted.Data.GrantID, "accept-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	types := pendingEventTypes(t, module)
	want := []string{"ownership.created", "authority.granted", "authority.accepted"}
	if len(types) != len(want) {
		t.Fatalf("expected %d pending events, got %v", len(want), types)
	}
	for i, eventType := range want {
		if types[i] != eventType {
			t.Fatalf("event %d: expected %s, got %v", i, eventType, types)
		}
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	var envelope ports.AuthorityEvent
	if err := json.Unmarshal(pending[1].Payload, &envelope); err != nil {
		t.Fatalf("envelope decode failed: %v", err)
	}
	if envelope.EventType != "authority.granted" {
		t.Fatalf("unexpected envelope event type: %s", envelope.EventType)
	}
	if envelope.PartitionKey != granted.Data.GrantID || envelope.PartitionKeyPath != "entity_id" {
		t.Fatalf("unexpected partition key: %+v", envelope)
	}
	if envelope.SourceService != "property-authority/authority-service" || envelope.EventID == "" {
		t.Fatalf("unexpected envelope header: %+v", envelope)
	}

	var grantBody map[string]any
	if err := json.Unmarshal(envelope.Data, &grantBody); err != nil {
		t.Fatalf("envelope data decode failed: %v", err)
	}
	if grantBody["grant_id"] != granted.Data.GrantID || grantBody["delegate_party_id"] != "bob" {
		t.Fatalf("unexpected grant body: %+v", grantBody)
	}
}

func TestOutboxRelayPublishesAndAcks(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	ctx := context.Background()

	createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	if err := module.OutboxRelay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	published := module.Store.PublishedEvents()
	if len(published) != 1 || published[0].EventType != "ownership.created" {
		t.Fatalf("expected one published ownership.created event, got %+v", published)
	}

	if remaining := pendingEventTypes(t, module); len(remaining) != 0 {
		t.Fatalf("published rows must leave the pending queue, got %v", remaining)
	}

	// A second pass is a no-op.
	if err := module.OutboxRelay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if published := module.Store.PublishedEvents(); len(published) != 1 {
		t.Fatalf("relay must not republish acknowledged rows, got %d", len(published))
	}
}

func TestClaimReaperPurgesExpiredRecords(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	ctx := context.Background()

	createOwner(t, module, "org-1", "prop-1", "alice", "own-1")

	// Jump past the record TTL so the completed record is purgeable.
	module.Store.SetNow(func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) })

	if err := module.ClaimReaper.RunOnce(ctx); err != nil {
		t.Fatalf("reaper run failed: %v", err)
	}

	// The purged key no longer replays; the same submission now collides on
	// the duplicate triple instead.
	_, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "own-1", httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	})
	if err == nil {
		t.Fatalf("expected duplicate ownership after record purge")
	}
}
