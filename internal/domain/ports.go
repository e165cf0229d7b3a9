package domain

import (
	"context"
	"time"
)

// ProtocolRepository persists the singleton ledger record.
type ProtocolRepository interface {
	Create(ctx context.Context, p Protocol) error
	Get(ctx context.Context) (Protocol, error)
	Update(ctx context.Context, p Protocol) error
}

// TenantRepository defines the persistence contract for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id TenantID) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	Update(ctx context.Context, tenant Tenant) error
	AppendCollection(ctx context.Context, id TenantID, ref CollectionRef) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Authority *Address
	Limit     int
	Offset    int
}

// Transactor runs fn as one atomic unit. Repositories and adapters called
// with the context passed to fn join the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Transfer moves Amount between two accounts on Authority's signature.
type Transfer struct {
	From      Address
	To        Address
	Authority Signer
	Amount    uint64
	Decimals  uint8
}

// PaymentService moves fee amounts between funding accounts.
type PaymentService interface {
	Transfer(ctx context.Context, t Transfer) error
	Balance(ctx context.Context, owner Address) (uint64, error)
}

// IssuanceService durably creates immutable, uniquely identified records.
type IssuanceService interface {
	Create(ctx context.Context, req AssetRequest) (Address, error)
	Get(ctx context.Context, addr Address) (Asset, error)
}

// Deriver yields deterministic record addresses and their bump proofs.
type Deriver interface {
	Derive(namespace string, key []byte) (Address, uint8)
}

// TransitionValidator decides lifecycle transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// Notice is a record of a committed ledger operation.
type Notice struct {
	Event      Event
	TenantID   TenantID
	Actor      Address
	Subject    Address
	Amount     uint64
	OccurredAt time.Time
}

// EventPublisher defines the contract for emitting ledger notices.
type EventPublisher interface {
	Publish(ctx context.Context, notice Notice) error
}
