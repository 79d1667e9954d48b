package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	authorityservice "mandata/contexts/property-authority/authority-service"
	"mandata/contexts/property-authority/authority-service/adapters/memory"
	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
	httptransport "mandata/contexts/property-authority/authority-service/transport/http"
)

func TestCreateOwnershipReplaysRecordedSuccess(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	ctx := context.Background()

	req := httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	}

	first, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "retry-key", req)
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first submission must not be a replay")
	}

	second, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "retry-key", req)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("retry should replay the recorded outcome")
	}
	if second.Data.OwnershipID != first.Data.OwnershipID || second.AuditLogID != first.AuditLogID {
		t.Fatalf("replay must return the original identifiers: first=%+v second=%+v", first, second)
	}

	listed, err := module.Store.ListOwnerships(ctx, ports.OwnershipFilter{OrgID: "org-1", PropertyID: "prop-1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("replay must not create a second record, got %d", len(listed))
	}
}

func TestIdempotencyKeyReuseWithDifferentPayloadConflicts(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-1", "carol")
	ctx := context.Background()

	if _, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "shared-key", httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	}); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	_, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "shared-key", httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "carol",
		Role:       "OWNER",
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerTenantAndOperation(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	seedParty(module, "org-2", "alice")
	ctx := context.Background()

	req := httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	}
	if _, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "key-1", req); err != nil {
		t.Fatalf("org-1 create failed: %v", err)
	}

	// The same key in another tenant is a fresh submission, not a replay.
	other, err := module.Handler.CreateOwnershipHandler(ctx, "org-2", "admin-1", "key-1", req)
	if err != nil {
		t.Fatalf("org-2 create failed: %v", err)
	}
	if other.Replayed {
		t.Fatalf("key scope must include the tenant")
	}
}

func TestDomainFailureIsReplayedWithoutReexecution(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	ctx := context.Background()

	req := httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	}
	if _, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "key-1", req); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	_, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "key-2", req)
	if !errors.Is(err, domainerrors.ErrDuplicateOwnership) {
		t.Fatalf("expected duplicate ownership, got %v", err)
	}

	// Retrying the failed submission surfaces the cached domain error.
	_, err = module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "key-2", req)
	if !errors.Is(err, domainerrors.ErrDuplicateOwnership) {
		t.Fatalf("expected replayed duplicate ownership, got %v", err)
	}
}

// gatedRepository blocks the first ownership insert until released, so a
// concurrent submission with the same key observes an in-flight claim.
type gatedRepository struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (g *gatedRepository) CreateOwnership(ctx context.Context, input ports.CreateOwnershipInput) (ports.OwnershipMutationResult, error) {
	if !g.once {
		g.once = true
		close(g.entered)
		<-g.release
	}
	return g.Store.CreateOwnership(ctx, input)
}

func TestConcurrentSubmissionHitsWaitBudget(t *testing.T) {
	store := memory.NewStore()
	repo := &gatedRepository{
		Store:   store,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	module := authorityservice.NewModule(authorityservice.Dependencies{
		Repository:   repo,
		Idempotency:  store,
		Outbox:       store,
		Publisher:    store,
		Clock:        store,
		IDGenerator:  store,
		ClaimTTL:     time.Minute,
		WaitBudget:   50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	store.SeedParty(entities.Party{PartyID: "alice", OrgID: "org-1", DisplayName: "alice", IsActive: true})
	ctx := context.Background()

	req := httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	}

	type outcome struct {
		resp httptransport.OwnershipResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "racy-key", req)
		done <- outcome{resp: resp, err: err}
	}()

	<-repo.entered
	_, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "racy-key", req)
	if !errors.Is(err, domainerrors.ErrIdempotencyInFlight) {
		t.Fatalf("expected in-flight error while owner executes, got %v", err)
	}

	close(repo.release)
	first := <-done
	if first.err != nil {
		t.Fatalf("owning submission failed: %v", first.err)
	}

	// With the outcome recorded, the retry replays it.
	second, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "racy-key", req)
	if err != nil {
		t.Fatalf("retry after completion failed: %v", err)
	}
	if !second.Replayed || second.Data.OwnershipID != first.resp.Data.OwnershipID {
		t.Fatalf("expected replay of owning submission: %+v", second)
	}
}

func TestExpiredClaimIsReleasedBySweep(t *testing.T) {
	module := authorityservice.NewInMemoryModule(nil)
	seedParty(module, "org-1", "alice")
	ctx := context.Background()

	now := time.Now().UTC()
	claimed, err := module.Store.ClaimRecord(ctx, ports.IdempotencyRecord{
		Key:            "authority_idempotency:org-1:admin-1:create_ownership:stale-key",
		Operation:      "create_ownership",
		Status:         ports.IdempotencyStatusInFlight,
		ClaimExpiresAt: now.Add(-time.Minute),
	}, now.Add(-2*time.Minute))
	if err != nil || !claimed {
		t.Fatalf("seeding stale claim failed: claimed=%v err=%v", claimed, err)
	}

	// The reaper drops the stale claim; the next submission starts fresh.
	sweeps, err := module.Store.ReleaseExpiredClaims(ctx, now)
	if err != nil || sweeps != 1 {
		t.Fatalf("expected one expired claim released, got %d err=%v", sweeps, err)
	}

	resp, err := module.Handler.CreateOwnershipHandler(ctx, "org-1", "admin-1", "stale-key", httptransport.CreateOwnershipRequest{
		PropertyID: "prop-1",
		PartyID:    "alice",
		Role:       "OWNER",
	})
	if err != nil {
		t.Fatalf("create after sweep failed: %v", err)
	}
	if resp.Replayed {
		t.Fatalf("submission after released claim must execute fresh")
	}
}
