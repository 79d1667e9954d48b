package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
	domainerrors "mandata/contexts/property-authority/authority-service/domain/errors"
	"mandata/contexts/property-authority/authority-service/ports"
	contractsv1 "mandata/contracts/gen/events/v1"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the repository, idempotency,
// outbox, clock, and ID generation ports. It is intended for tests and local
// development wiring; every mutation applies the same invariant checks as the
// postgres adapter, under one mutex instead of row locks.
type Store struct {
	mu sync.Mutex

	parties    map[string]entities.Party
	ownerships map[string]entities.Ownership
	grants     map[string]entities.DelegatedAuthority

	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRow
	audit       []auditRow
	published   []ports.AuthorityEvent

	nowFn func() time.Time
}

type outboxRow struct {
	ports.OutboxMessage
	PublishedAt *time.Time
}

type auditRow struct {
	AuditLogID string
	OrgID      string
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	CreatedAt  time.Time
}

// NewStore builds an empty in-memory adapter.
func NewStore() *Store {
	return &Store{
		parties:     make(map[string]entities.Party),
		ownerships:  make(map[string]entities.Ownership),
		grants:      make(map[string]entities.DelegatedAuthority),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRow),
	}
}

// SeedParty registers a tenant member. Party management is owned by the
// identity collaborator in production; tests seed what they need.
func (s *Store) SeedParty(party entities.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[party.PartyID] = party
}

// SetNow overrides the adapter clock so tests can cross expiry boundaries.
func (s *Store) SetNow(nowFn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = nowFn
}

func (s *Store) GetParty(_ context.Context, orgID string, partyID string) (entities.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.parties[partyID]
	if !ok || party.OrgID != orgID {
		return entities.Party{}, domainerrors.ErrPartyNotFound
	}
	return party, nil
}

func (s *Store) CreateOwnership(_ context.Context, input ports.CreateOwnershipInput) (ports.OwnershipMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := input.CreatedAt.UTC()
	for _, existing := range s.ownerships {
		if existing.OrgID != input.OrgID || existing.DeletedAt != nil {
			continue
		}
		if existing.PropertyID == input.PropertyID && existing.PartyID == input.PartyID && existing.Role == input.Role {
			return ports.OwnershipMutationResult{}, domainerrors.ErrDuplicateOwnership
		}
	}
	if input.Role != entities.OwnershipRoleOwner && !s.hasActiveOwnerLocked(input.OrgID, input.PropertyID, now, "") {
		return ports.OwnershipMutationResult{}, domainerrors.ErrNoActiveOwner
	}

	ownership := entities.Ownership{
		OwnershipID:      input.OwnershipID,
		OrgID:            input.OrgID,
		PropertyID:       input.PropertyID,
		PartyID:          input.PartyID,
		Role:             input.Role,
		Status:           entities.OwnershipStatusActive,
		OwnershipPercent: input.OwnershipPercent,
		IsPrimaryContact: input.IsPrimaryContact,
		EffectiveFrom:    input.EffectiveFrom.UTC(),
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.ownerships[ownership.OwnershipID] = ownership
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "created", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "ownership.created", ownership.OwnershipID, ownership, now); err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) GetOwnership(_ context.Context, orgID string, ownershipID string) (entities.Ownership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOwnershipLocked(orgID, ownershipID)
}

func (s *Store) getOwnershipLocked(orgID string, ownershipID string) (entities.Ownership, error) {
	ownership, ok := s.ownerships[ownershipID]
	if !ok || ownership.OrgID != orgID || ownership.DeletedAt != nil {
		return entities.Ownership{}, domainerrors.ErrOwnershipNotFound
	}
	return ownership, nil
}

func (s *Store) ListOwnerships(_ context.Context, filter ports.OwnershipFilter) ([]entities.Ownership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.Ownership, 0)
	for _, ownership := range s.ownerships {
		if ownership.OrgID != filter.OrgID || ownership.DeletedAt != nil {
			continue
		}
		if filter.PropertyID != "" && ownership.PropertyID != filter.PropertyID {
			continue
		}
		if filter.PartyID != "" && ownership.PartyID != filter.PartyID {
			continue
		}
		if !filter.IncludeTerminated && ownership.Status == entities.OwnershipStatusTerminated {
			continue
		}
		items = append(items, ownership)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdateOwnership(_ context.Context, input ports.UpdateOwnershipInput) (ports.OwnershipMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownership, err := s.getOwnershipLocked(input.OrgID, input.OwnershipID)
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}

	now := input.UpdatedAt.UTC()
	if input.OwnershipPercent != nil {
		ownership.OwnershipPercent = input.OwnershipPercent
	}
	if input.IsPrimaryContact != nil {
		ownership.IsPrimaryContact = *input.IsPrimaryContact
	}
	if input.EffectiveTo != nil {
		effectiveTo := input.EffectiveTo.UTC()
		ownership.EffectiveTo = &effectiveTo
	}
	if input.Notes != nil {
		ownership.Notes = *input.Notes
	}
	ownership.UpdatedAt = now

	s.ownerships[ownership.OwnershipID] = ownership
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "updated", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "ownership.updated", ownership.OwnershipID, ownership, now); err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) VerifyOwnership(_ context.Context, input ports.VerifyOwnershipInput) (ports.OwnershipMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownership, err := s.getOwnershipLocked(input.OrgID, input.OwnershipID)
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	if ownership.VerifiedAt != nil {
		return ports.OwnershipMutationResult{}, domainerrors.ErrOwnershipVerified
	}

	now := input.VerifiedAt.UTC()
	ownership.VerifiedAt = &now
	ownership.VerifiedBy = input.ActorID
	ownership.UpdatedAt = now

	s.ownerships[ownership.OwnershipID] = ownership
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "verified", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "ownership.verified", ownership.OwnershipID, ownership, now); err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) TerminateOwnership(_ context.Context, input ports.TerminateOwnershipInput) (ports.OwnershipMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownership, err := s.getOwnershipLocked(input.OrgID, input.OwnershipID)
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	if ownership.Status == entities.OwnershipStatusTerminated {
		return ports.OwnershipMutationResult{}, domainerrors.ErrOwnershipTerminated
	}

	now := input.EffectiveTo.UTC()
	if ownership.Role == entities.OwnershipRoleOwner && ownership.IsActive(now) &&
		!s.hasActiveOwnerLocked(input.OrgID, ownership.PropertyID, now, ownership.OwnershipID) {
		return ports.OwnershipMutationResult{}, domainerrors.ErrLastActiveOwner
	}

	ownership.Status = entities.OwnershipStatusTerminated
	ownership.EffectiveTo = &now
	ownership.UpdatedAt = now

	s.ownerships[ownership.OwnershipID] = ownership
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "terminated", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "ownership.terminated", ownership.OwnershipID, ownership, now); err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) DeleteOwnership(_ context.Context, input ports.DeleteOwnershipInput) (ports.OwnershipMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownership, err := s.getOwnershipLocked(input.OrgID, input.OwnershipID)
	if err != nil {
		return ports.OwnershipMutationResult{}, err
	}

	now := input.DeletedAt.UTC()
	if ownership.Role == entities.OwnershipRoleOwner && ownership.IsActive(now) &&
		!s.hasActiveOwnerLocked(input.OrgID, ownership.PropertyID, now, ownership.OwnershipID) {
		return ports.OwnershipMutationResult{}, domainerrors.ErrLastActiveOwner
	}

	ownership.DeletedAt = &now
	ownership.UpdatedAt = now

	s.ownerships[ownership.OwnershipID] = ownership
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "ownership", ownership.OwnershipID, "deleted", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "ownership.deleted", ownership.OwnershipID, ownership, now); err != nil {
		return ports.OwnershipMutationResult{}, err
	}
	return ports.OwnershipMutationResult{Ownership: ownership, AuditLogID: input.AuditLogID}, nil
}

// hasActiveOwnerLocked reports whether the property has an active OWNER other
// than excludeID at the given instant.
func (s *Store) hasActiveOwnerLocked(orgID string, propertyID string, now time.Time, excludeID string) bool {
	for _, ownership := range s.ownerships {
		if ownership.OrgID != orgID || ownership.PropertyID != propertyID {
			continue
		}
		if ownership.OwnershipID == excludeID {
			continue
		}
		if ownership.Role == entities.OwnershipRoleOwner && ownership.IsActive(now) {
			return true
		}
	}
	return false
}

func (s *Store) CreateGrant(_ context.Context, input ports.CreateGrantInput) (ports.GrantMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getOwnershipLocked(input.OrgID, input.OwnershipID); err != nil {
		return ports.GrantMutationResult{}, err
	}

	now := input.GrantedAt.UTC()
	for _, existing := range s.grants {
		if existing.OrgID != input.OrgID {
			continue
		}
		if existing.OwnershipID == input.OwnershipID &&
			existing.DelegatePartyID == input.DelegatePartyID &&
			existing.AuthorityType == input.AuthorityType &&
			existing.OccupiesTriple(now) {
			return ports.GrantMutationResult{}, domainerrors.ErrDuplicateGrant
		}
	}

	grant := entities.DelegatedAuthority{
		GrantID:           input.GrantID,
		OrgID:             input.OrgID,
		OwnershipID:       input.OwnershipID,
		DelegatePartyID:   input.DelegatePartyID,
		AuthorityType:     input.AuthorityType,
		Status:            entities.GrantStatusPendingAcceptance,
		MonetaryLimit:     input.MonetaryLimit,
		ScopeDescription:  input.ScopeDescription,
		ScopeRestrictions: input.ScopeRestrictions,
		ExpiresAt:         normalizeOptionalTime(input.ExpiresAt),
		GrantedAt:         now,
		GrantedBy:         input.ActorID,
	}
	s.grants[grant.GrantID] = grant
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "grant", grant.GrantID, "granted", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "authority.granted", grant.GrantID, grant, now); err != nil {
		return ports.GrantMutationResult{}, err
	}
	return ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) GetGrant(_ context.Context, orgID string, grantID string) (entities.DelegatedAuthority, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[grantID]
	if !ok || grant.OrgID != orgID {
		return entities.DelegatedAuthority{}, domainerrors.ErrGrantNotFound
	}
	return grant, nil
}

func (s *Store) ListGrants(_ context.Context, filter ports.GrantFilter) ([]entities.DelegatedAuthority, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.DelegatedAuthority, 0)
	for _, grant := range s.grants {
		if grant.OrgID != filter.OrgID {
			continue
		}
		if filter.OwnershipID != "" && grant.OwnershipID != filter.OwnershipID {
			continue
		}
		if filter.DelegatePartyID != "" && grant.DelegatePartyID != filter.DelegatePartyID {
			continue
		}
		if filter.PropertyID != "" {
			ownership, ok := s.ownerships[grant.OwnershipID]
			if !ok || ownership.PropertyID != filter.PropertyID {
				continue
			}
		}
		items = append(items, grant)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].GrantedAt.Before(items[j].GrantedAt)
	})
	return items, nil
}

func (s *Store) AcceptGrant(_ context.Context, input ports.AcceptGrantInput) (ports.GrantMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[input.GrantID]
	if !ok || grant.OrgID != input.OrgID {
		return ports.GrantMutationResult{}, domainerrors.ErrGrantNotFound
	}

	now := input.AcceptedAt.UTC()
	if grant.EffectiveStatus(now) != entities.GrantStatusPendingAcceptance {
		return ports.GrantMutationResult{}, domainerrors.ErrGrantNotPending
	}

	grant.Status = entities.GrantStatusActive
	grant.AcceptedAt = &now

	s.grants[grant.GrantID] = grant
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "grant", grant.GrantID, "accepted", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "authority.accepted", grant.GrantID, grant, now); err != nil {
		return ports.GrantMutationResult{}, err
	}
	return ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) RevokeGrant(_ context.Context, input ports.RevokeGrantInput) (ports.GrantMutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[input.GrantID]
	if !ok || grant.OrgID != input.OrgID {
		return ports.GrantMutationResult{}, domainerrors.ErrGrantNotFound
	}

	now := input.RevokedAt.UTC()
	switch grant.EffectiveStatus(now) {
	case entities.GrantStatusPendingAcceptance, entities.GrantStatusActive:
	default:
		return ports.GrantMutationResult{}, domainerrors.ErrGrantNotRevocable
	}

	grant.Status = entities.GrantStatusRevoked
	grant.RevokedAt = &now
	grant.RevokedBy = input.ActorID
	grant.RevokeReason = input.Reason

	s.grants[grant.GrantID] = grant
	s.appendAuditLocked(input.AuditLogID, input.OrgID, "grant", grant.GrantID, "revoked", input.ActorID, now)
	if err := s.appendOutboxLocked(input.OutboxID, "authority.revoked", grant.GrantID, grant, now); err != nil {
		return ports.GrantMutationResult{}, err
	}
	return ports.GrantMutationResult{Grant: grant, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) FindOwnerRole(_ context.Context, orgID string, propertyID string, partyID string, now time.Time) (entities.Ownership, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var coOwner entities.Ownership
	var foundCoOwner bool
	for _, ownership := range s.ownerships {
		if ownership.OrgID != orgID || ownership.PropertyID != propertyID || ownership.PartyID != partyID {
			continue
		}
		if !ownership.IsActive(now) {
			continue
		}
		switch ownership.Role {
		case entities.OwnershipRoleOwner:
			return ownership, true, nil
		case entities.OwnershipRoleCoOwner:
			coOwner = ownership
			foundCoOwner = true
		}
	}
	return coOwner, foundCoOwner, nil
}

func (s *Store) FindEffectiveGrant(_ context.Context, orgID string, propertyID string, partyID string, authorityType entities.AuthorityType, now time.Time) (entities.DelegatedAuthority, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, grant := range s.grants {
		if grant.OrgID != orgID || grant.DelegatePartyID != partyID || grant.AuthorityType != authorityType {
			continue
		}
		if !grant.IsEffectivelyActive(now) {
			continue
		}
		ownership, ok := s.ownerships[grant.OwnershipID]
		if !ok || ownership.PropertyID != propertyID {
			continue
		}
		// A delegation survives only as long as its grantor relationship is
		// active; the grantor's current role is deliberately not re-checked.
		if !ownership.IsActive(now) {
			continue
		}
		return grant, true, nil
	}
	return entities.DelegatedAuthority{}, false, nil
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if record.Status != ports.IdempotencyStatusInFlight &&
		!record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	record.ResponsePayload = append([]byte(nil), record.ResponsePayload...)
	return record, true, nil
}

func (s *Store) ClaimRecord(_ context.Context, record ports.IdempotencyRecord, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.idempotency[record.Key]
	if !ok {
		s.idempotency[record.Key] = record
		return true, nil
	}
	if existing.Status == ports.IdempotencyStatusInFlight &&
		!existing.ClaimExpiresAt.After(now.UTC()) {
		s.idempotency[record.Key] = record
		return true, nil
	}
	return false, nil
}

func (s *Store) CompleteRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ResponsePayload = append([]byte(nil), record.ResponsePayload...)
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) ReleaseClaim(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[key]; ok && existing.Status == ports.IdempotencyStatusInFlight {
		delete(s.idempotency, key)
	}
	return nil
}

func (s *Store) ReleaseExpiredClaims(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for key, record := range s.idempotency {
		if record.Status == ports.IdempotencyStatusInFlight && !record.ClaimExpiresAt.After(now.UTC()) {
			delete(s.idempotency, key)
			released++
		}
	}
	return released, nil
}

func (s *Store) PurgeExpiredRecords(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, record := range s.idempotency {
		if record.Status != ports.IdempotencyStatusInFlight &&
			!record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
			delete(s.idempotency, key)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			pending = append(pending, row.OutboxMessage)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	stamp := publishedAt.UTC()
	row.PublishedAt = &stamp
	s.outbox[outboxID] = row
	return nil
}

// PublishAuthorityEvent records the event so tests can assert relay output.
func (s *Store) PublishAuthorityEvent(_ context.Context, event ports.AuthorityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, event)
	return nil
}

// PublishedEvents returns a copy of the events the relay has published.
func (s *Store) PublishedEvents() []ports.AuthorityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.AuthorityEvent(nil), s.published...)
}

func (s *Store) Now() time.Time {
	s.mu.Lock()
	nowFn := s.nowFn
	s.mu.Unlock()
	if nowFn != nil {
		return nowFn().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) appendAuditLocked(auditLogID string, orgID string, entityType string, entityID string, action string, actorID string, createdAt time.Time) {
	s.audit = append(s.audit, auditRow{
		AuditLogID: auditLogID,
		OrgID:      orgID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		CreatedAt:  createdAt,
	})
}

func (s *Store) appendOutboxLocked(outboxID string, eventType string, entityID string, entity any, createdAt time.Time) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	envelope := contractsv1.Envelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		OccurredAt:       createdAt,
		SourceService:    "property-authority/authority-service",
		SchemaVersion:    1,
		PartitionKeyPath: "entity_id",
		PartitionKey:     entityID,
		Data:             data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.outbox[outboxID] = outboxRow{
		OutboxMessage: ports.OutboxMessage{
			OutboxID:  outboxID,
			EventType: eventType,
			Payload:   payload,
			CreatedAt: createdAt,
		},
	}
	return nil
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
