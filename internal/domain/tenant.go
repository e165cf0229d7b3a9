package domain

import "time"

// TenantID is the sequential identifier of a registered college.
type TenantID uint16

// Status represents the subscription state of a tenant.
type Status string

const (
	StatusUnregistered Status = "unregistered"
	StatusActive       Status = "active"
	StatusExpired      Status = "expired"
)

// Event names both lifecycle triggers and the ledger notices published after
// an operation commits.
type Event string

// Lifecycle events, validated against Transitions.
const (
	EventRegister Event = "register"
	EventRenew    Event = "renew"
	EventExpire   Event = "expire"
)

// Notice-only events. They carry no state transition.
const (
	EventCollectionAdded   Event = "collection_added"
	EventCertificateMinted Event = "certificate_minted"
	EventFeesWithdrawn     Event = "fees_withdrawn"
	EventParametersUpdated Event = "parameters_updated"
	EventInitialized       Event = "initialized"
)

// LifecycleEvents lists the events that drive tenant status changes.
var LifecycleEvents = []Event{EventRegister, EventRenew, EventExpire}

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the subscription lifecycle.
// Renewal from active is a self-loop: it refreshes the payment time only.
var Transitions = []Transition{
	{Event: EventRegister, Src: StatusUnregistered, Dst: StatusActive},
	{Event: EventRenew, Src: StatusActive, Dst: StatusActive},
	{Event: EventRenew, Src: StatusExpired, Dst: StatusActive},
	{Event: EventExpire, Src: StatusActive, Dst: StatusExpired},
}

// Tenant is a registered college with its own authority and subscription state.
type Tenant struct {
	ID              TenantID
	Address         Address
	Bump            uint8
	Authority       Address
	UpdateAuthority Address
	LastPaymentAt   time.Time
	Status          Status
	Collections     Collections
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTenant creates a tenant that has just paid its first fee.
func NewTenant(id TenantID, addr Address, bump uint8, authority, updateAuthority Address, now time.Time) Tenant {
	now = now.UTC()
	if updateAuthority == "" {
		updateAuthority = authority
	}
	return Tenant{
		ID:              id,
		Address:         addr,
		Bump:            bump,
		Authority:       authority,
		UpdateAuthority: updateAuthority,
		LastPaymentAt:   now,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ExpiresAt returns the instant after which the subscription lapses.
func (t Tenant) ExpiresAt(period time.Duration) time.Time {
	return t.LastPaymentAt.Add(period)
}

// Expired reports whether now is strictly past the paid period.
func (t Tenant) Expired(now time.Time, period time.Duration) bool {
	return now.After(t.ExpiresAt(period))
}

// RecordPayment marks a successful fee payment at now.
func (t *Tenant) RecordPayment(status Status, now time.Time) {
	now = now.UTC()
	t.LastPaymentAt = now
	t.Status = status
	t.UpdatedAt = now
}
