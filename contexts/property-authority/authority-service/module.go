package authorityservice

import (
	"log/slog"
	"time"

	httpadapter "mandata/contexts/property-authority/authority-service/adapters/http"
	"mandata/contexts/property-authority/authority-service/adapters/memory"
	"mandata/contexts/property-authority/authority-service/application/commands"
	"mandata/contexts/property-authority/authority-service/application/queries"
	"mandata/contexts/property-authority/authority-service/application/workers"
	"mandata/contexts/property-authority/authority-service/ports"
)

// Module is the composition surface for the authority service.
// Runtime wiring should consume Handler; Store is exposed for tests/inspection.
type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	ClaimReaper workers.ClaimReaper
	Store       *memory.Store
}

type Dependencies struct {
	Repository      ports.Repository
	Idempotency     ports.IdempotencyStore
	Outbox          ports.OutboxRepository
	Publisher       ports.AuthorityEventPublisher
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	ClaimTTL        time.Duration
	IdempotencyTTL  time.Duration
	WaitBudget      time.Duration
	PollInterval    time.Duration
	OutboxBatchSize int
	Logger          *slog.Logger
}

// NewModule wires the authority use-cases against explicit ports.
func NewModule(deps Dependencies) Module {
	executor := commands.Executor{
		Idempotency:  deps.Idempotency,
		Clock:        deps.Clock,
		ClaimTTL:     deps.ClaimTTL,
		RecordTTL:    deps.IdempotencyTTL,
		WaitBudget:   deps.WaitBudget,
		PollInterval: deps.PollInterval,
		Logger:       deps.Logger,
	}

	createOwnership := commands.CreateOwnershipUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	updateOwnership := commands.UpdateOwnershipUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	verifyOwnership := commands.VerifyOwnershipUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	terminateOwnership := commands.TerminateOwnershipUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	deleteOwnership := commands.DeleteOwnershipUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	grantAuthority := commands.GrantAuthorityUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	acceptAuthority := commands.AcceptAuthorityUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	revokeAuthority := commands.RevokeAuthorityUseCase{
		Repository:  deps.Repository,
		Executor:    executor,
		IDGenerator: deps.IDGenerator,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}

	getOwnership := queries.GetOwnershipUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	listOwnerships := queries.ListOwnershipsUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	listAuthorities := queries.ListAuthoritiesUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	resolveAuthority := queries.ResolveAuthorityUseCase{
		Repository: deps.Repository,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}

	handler := httpadapter.Handler{
		CreateOwnership:    createOwnership,
		UpdateOwnership:    updateOwnership,
		VerifyOwnership:    verifyOwnership,
		TerminateOwnership: terminateOwnership,
		DeleteOwnership:    deleteOwnership,
		GrantAuthority:     grantAuthority,
		AcceptAuthority:    acceptAuthority,
		RevokeAuthority:    revokeAuthority,
		GetOwnership:       getOwnership,
		ListOwnerships:     listOwnerships,
		ListAuthorities:    listAuthorities,
		ResolveAuthority:   resolveAuthority,
		Logger:             deps.Logger,
	}

	return Module{
		Handler: handler,
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
		ClaimReaper: workers.ClaimReaper{
			Idempotency: deps.Idempotency,
			Clock:       deps.Clock,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the authority use-cases against in-memory adapters.
// This is the developer/test bootstrap path alongside the Postgres adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:     store,
		Idempotency:    store,
		Outbox:         store,
		Publisher:      store,
		Clock:          store,
		IDGenerator:    store,
		ClaimTTL:       30 * time.Second,
		IdempotencyTTL: 7 * 24 * time.Hour,
		WaitBudget:     2 * time.Second,
		PollInterval:   25 * time.Millisecond,
		Logger:         logger,
	})
	module.Store = store
	return module
}
