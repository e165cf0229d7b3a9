package app

import (
	"context"
	"time"

	"github.com/neomorfeo/certiq/internal/domain"
)

// gate runs the checks every tenant-scoped mutation must pass, in order:
// caller authority, then subscription state. It never mutates anything.
func (s *LedgerService) gate(p domain.Protocol, t domain.Tenant, caller domain.Address, now time.Time) error {
	if err := domain.Authorize(caller, t); err != nil {
		return err
	}
	if !domain.IsActive(t, now, p.Period()) {
		return &domain.NotActiveError{
			TenantID:  t.ID,
			ExpiredAt: t.ExpiresAt(p.Period()),
		}
	}
	return nil
}

// currentStatus evaluates the stored status lazily: a lapsed "active"
// tenant is reported through the expire transition.
func (s *LedgerService) currentStatus(ctx context.Context, p domain.Protocol, t domain.Tenant, now time.Time) (domain.Status, error) {
	if t.Status == domain.StatusActive && t.Expired(now, p.Period()) {
		return s.validator.Apply(ctx, t.Status, domain.EventExpire)
	}
	return t.Status, nil
}

// loadGated reads the protocol and tenant inside the caller's transaction
// and applies the gate.
func (s *LedgerService) loadGated(ctx context.Context, id domain.TenantID, caller domain.Address, now time.Time) (domain.Protocol, domain.Tenant, error) {
	p, err := s.protocol.Get(ctx)
	if err != nil {
		return domain.Protocol{}, domain.Tenant{}, err
	}
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return domain.Protocol{}, domain.Tenant{}, err
	}
	if err := s.gate(p, t, caller, now); err != nil {
		return domain.Protocol{}, domain.Tenant{}, err
	}
	return p, t, nil
}
