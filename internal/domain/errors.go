package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrNotAuthorized          = errors.New("not authorized")
	ErrCollegeNotActive       = errors.New("college is not active")
	ErrCollectionNotFound     = errors.New("collection not found")
	ErrCollectionLimitReached = errors.New("collection limit reached")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrDuplicateIdentifier    = errors.New("identifier already in use")
	ErrCounterOverflow        = errors.New("counter overflow")
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrProtocolNotInitialized = errors.New("protocol is not initialized")
	ErrAlreadyInitialized     = errors.New("protocol is already initialized")
	ErrAssetNotFound          = errors.New("asset not found")
	ErrDecimalsMismatch       = errors.New("transfer decimals do not match the fee currency")
)

// NotActiveError is returned when a gated operation targets a tenant whose
// subscription has lapsed.
type NotActiveError struct {
	TenantID  TenantID
	ExpiredAt time.Time
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("college %d is not active: subscription expired at %s",
		e.TenantID, e.ExpiredAt.UTC().Format(time.RFC3339))
}

func (e *NotActiveError) Unwrap() error { return ErrCollegeNotActive }

// InsufficientFundsError is returned when an account cannot cover a transfer.
type InsufficientFundsError struct {
	Account   Address
	Needed    uint64
	Available uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %s holds %d, needs %d", e.Account, e.Available, e.Needed)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ValidationError is returned for malformed operation arguments.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
