package ports

import (
	"context"
	"time"

	"mandata/contexts/property-authority/authority-service/domain/entities"
)

// Clock abstracts current time for deterministic tests and lazy-expiry reads.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for entity/audit/outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Idempotency record statuses. A key is claimed in flight before its command
// executes; exactly one claimant may hold a live claim at a time.
const (
	IdempotencyStatusInFlight  = "in_flight"
	IdempotencyStatusSucceeded = "succeeded"
	IdempotencyStatusFailed    = "failed"
)

// IdempotencyRecord stores the request hash, execution claim, and outcome for
// one idempotency key. Failed outcomes carry a stable domain error code so
// retries replay the original error deterministically.
type IdempotencyRecord struct {
	Key             string
	Operation       string
	RequestHash     string
	Status          string
	ResponsePayload []byte
	ErrorCode       string
	ClaimExpiresAt  time.Time
	ExpiresAt       time.Time
}

// IdempotencyStore guarantees at-most-once execution and outcome replay per key.
type IdempotencyStore interface {
	// GetRecord returns the record for key, dropping records whose TTL elapsed.
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	// ClaimRecord atomically inserts an in-flight claim for the key. It also
	// takes over an existing in-flight claim whose deadline has passed (crash
	// recovery). Returns true when the caller now owns execution.
	ClaimRecord(ctx context.Context, record IdempotencyRecord, now time.Time) (bool, error)
	// CompleteRecord stores the outcome for a key the caller has claimed.
	CompleteRecord(ctx context.Context, record IdempotencyRecord) error
	// ReleaseClaim drops an in-flight claim without recording an outcome, so a
	// retry after an infrastructure failure re-executes.
	ReleaseClaim(ctx context.Context, key string) error
	// ReleaseExpiredClaims drops in-flight claims past their deadline.
	ReleaseExpiredClaims(ctx context.Context, now time.Time) (int, error)
	// PurgeExpiredRecords drops completed records whose TTL elapsed.
	PurgeExpiredRecords(ctx context.Context, now time.Time) (int, error)
}

// CreateOwnershipInput is persisted atomically with audit and outbox records.
type CreateOwnershipInput struct {
	OwnershipID      string
	AuditLogID       string
	OutboxID         string
	OrgID            string
	PropertyID       string
	PartyID          string
	Role             entities.OwnershipRole
	OwnershipPercent *float64
	IsPrimaryContact bool
	EffectiveFrom    time.Time
	Notes            string
	ActorID          string
	CreatedAt        time.Time
}

// UpdateOwnershipInput mutates the caller-editable ownership attributes.
// Nil pointer fields are left unchanged.
type UpdateOwnershipInput struct {
	AuditLogID       string
	OutboxID         string
	OrgID            string
	OwnershipID      string
	OwnershipPercent *float64
	IsPrimaryContact *bool
	EffectiveTo      *time.Time
	Notes            *string
	ActorID          string
	UpdatedAt        time.Time
}

// VerifyOwnershipInput stamps a privileged verification on an ownership.
type VerifyOwnershipInput struct {
	AuditLogID  string
	OutboxID    string
	OrgID       string
	OwnershipID string
	ActorID     string
	VerifiedAt  time.Time
}

// TerminateOwnershipInput ends an ownership, guarded by the last-owner check.
type TerminateOwnershipInput struct {
	AuditLogID  string
	OutboxID    string
	OrgID       string
	OwnershipID string
	ActorID     string
	EffectiveTo time.Time
}

// DeleteOwnershipInput soft-deletes an ownership, guarded by the last-owner check.
type DeleteOwnershipInput struct {
	AuditLogID  string
	OutboxID    string
	OrgID       string
	OwnershipID string
	ActorID     string
	DeletedAt   time.Time
}

// OwnershipMutationResult is returned by ownership repository mutations.
type OwnershipMutationResult struct {
	Ownership  entities.Ownership
	AuditLogID string
}

// OwnershipFilter narrows ownership listings. Terminated and soft-deleted
// records are excluded unless explicitly included.
type OwnershipFilter struct {
	OrgID             string
	PropertyID        string
	PartyID           string
	IncludeTerminated bool
}

// CreateGrantInput is persisted atomically with audit and outbox records. The
// repository re-checks the grantor ownership and the uniqueness of the
// (ownership, delegate, authority type) triple under lock.
type CreateGrantInput struct {
	GrantID           string
	AuditLogID        string
	OutboxID          string
	OrgID             string
	OwnershipID       string
	DelegatePartyID   string
	AuthorityType     entities.AuthorityType
	MonetaryLimit     *float64
	ScopeDescription  string
	ScopeRestrictions map[string]any
	ExpiresAt         *time.Time
	ActorID           string
	GrantedAt         time.Time
}

// AcceptGrantInput transitions a pending grant to active under lock.
type AcceptGrantInput struct {
	AuditLogID string
	OutboxID   string
	OrgID      string
	GrantID    string
	ActorID    string
	AcceptedAt time.Time
}

// RevokeGrantInput transitions a pending or active grant to revoked under lock.
type RevokeGrantInput struct {
	AuditLogID string
	OutboxID   string
	OrgID      string
	GrantID    string
	Reason     string
	ActorID    string
	RevokedAt  time.Time
}

// GrantMutationResult is returned by grant repository mutations.
type GrantMutationResult struct {
	Grant      entities.DelegatedAuthority
	AuditLogID string
}

// GrantFilter narrows delegated-authority listings.
type GrantFilter struct {
	OrgID           string
	OwnershipID     string
	DelegatePartyID string
	PropertyID      string
}

// Repository is the transactional read/write boundary for authority state.
// Mutation methods run inside one storage transaction: they lock the rows they
// examine, re-check lifecycle invariants under lock, and write the audit and
// outbox rows together with the state change.
type Repository interface {
	GetParty(ctx context.Context, orgID string, partyID string) (entities.Party, error)

	CreateOwnership(ctx context.Context, input CreateOwnershipInput) (OwnershipMutationResult, error)
	GetOwnership(ctx context.Context, orgID string, ownershipID string) (entities.Ownership, error)
	ListOwnerships(ctx context.Context, filter OwnershipFilter) ([]entities.Ownership, error)
	UpdateOwnership(ctx context.Context, input UpdateOwnershipInput) (OwnershipMutationResult, error)
	VerifyOwnership(ctx context.Context, input VerifyOwnershipInput) (OwnershipMutationResult, error)
	TerminateOwnership(ctx context.Context, input TerminateOwnershipInput) (OwnershipMutationResult, error)
	DeleteOwnership(ctx context.Context, input DeleteOwnershipInput) (OwnershipMutationResult, error)

	CreateGrant(ctx context.Context, input CreateGrantInput) (GrantMutationResult, error)
	GetGrant(ctx context.Context, orgID string, grantID string) (entities.DelegatedAuthority, error)
	ListGrants(ctx context.Context, filter GrantFilter) ([]entities.DelegatedAuthority, error)
	AcceptGrant(ctx context.Context, input AcceptGrantInput) (GrantMutationResult, error)
	RevokeGrant(ctx context.Context, input RevokeGrantInput) (GrantMutationResult, error)

	// FindOwnerRole returns the active OWNER/CO_OWNER ownership for the party
	// on the property, if any. Used by resolution step 1.
	FindOwnerRole(ctx context.Context, orgID string, propertyID string, partyID string, now time.Time) (entities.Ownership, bool, error)
	// FindEffectiveGrant returns the effectively-active grant of the authority
	// type to the party whose grantor ownership is active on the property.
	// Used by resolution step 2.
	FindEffectiveGrant(ctx context.Context, orgID string, propertyID string, partyID string, authorityType entities.AuthorityType, now time.Time) (entities.DelegatedAuthority, bool, error)
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}
