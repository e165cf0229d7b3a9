package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/certiq/internal/domain"
)

// Ports bundles the adapters the ledger service depends on.
type Ports struct {
	Protocol  domain.ProtocolRepository
	Tenants   domain.TenantRepository
	Tx        domain.Transactor
	Payments  domain.PaymentService
	Issuer    domain.IssuanceService
	Deriver   domain.Deriver
	Publisher domain.EventPublisher
	Validator domain.TransitionValidator
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithClock replaces the wall clock used for payment times and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// LedgerService orchestrates protocol, tenant, collection and certificate
// operations. Every mutating operation runs in a single transaction.
type LedgerService struct {
	protocol  domain.ProtocolRepository
	tenants   domain.TenantRepository
	tx        domain.Transactor
	payments  domain.PaymentService
	issuer    domain.IssuanceService
	deriver   domain.Deriver
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	now       func() time.Time
}

// NewLedgerService creates a service with the given adapters.
func NewLedgerService(p Ports, opts ...Option) *LedgerService {
	s := &LedgerService{
		protocol:  p.Protocol,
		tenants:   p.Tenants,
		tx:        p.Tx,
		payments:  p.Payments,
		issuer:    p.Issuer,
		deriver:   p.Deriver,
		publisher: p.Publisher,
		validator: p.Validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Initialize creates the protocol record with admin as its administrator.
// It fails with domain.ErrAlreadyInitialized on a second call.
func (s *LedgerService) Initialize(ctx context.Context, admin domain.Address, fee uint64, decimals uint8, period int64) (domain.Protocol, error) {
	if admin == "" {
		return domain.Protocol{}, domain.ErrNotAuthorized
	}
	now := s.clock()
	addr, bump := s.deriver.Derive(domain.NamespaceProtocol, nil)

	p, err := domain.NewProtocol(addr, bump, admin, fee, decimals, period, now)
	if err != nil {
		return domain.Protocol{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.protocol.Create(ctx, p); err != nil {
			return err
		}
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventInitialized,
			Actor:      admin,
			Subject:    addr,
			Amount:     fee,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Protocol{}, err
	}
	return p, nil
}

// GetProtocol returns the protocol record.
func (s *LedgerService) GetProtocol(ctx context.Context) (domain.Protocol, error) {
	return s.protocol.Get(ctx)
}

// Register onboards a new college paid for by payer. An empty authority
// defaults to the payer and an empty updateAuthority to the authority.
func (s *LedgerService) Register(ctx context.Context, payer, authority, updateAuthority domain.Address) (domain.Tenant, error) {
	if payer == "" {
		return domain.Tenant{}, domain.ErrNotAuthorized
	}
	if authority == "" {
		authority = payer
	}
	now := s.clock()

	var tenant domain.Tenant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.protocol.Get(ctx)
		if err != nil {
			return err
		}

		id, err := p.NextTenantID()
		if err != nil {
			return err
		}

		status, err := s.validator.Apply(ctx, domain.StatusUnregistered, domain.EventRegister)
		if err != nil {
			return err
		}

		if err := s.collectFee(ctx, &p, payer); err != nil {
			return err
		}

		addr, bump := s.deriver.Derive(domain.NamespaceCollege, domain.TenantKey(id))
		t := domain.NewTenant(id, addr, bump, authority, updateAuthority, now)
		t.Status = status

		if err := s.tenants.Create(ctx, t); err != nil {
			return err
		}

		p.TenantCount = uint16(id)
		p.UpdatedAt = now
		if err := s.protocol.Update(ctx, p); err != nil {
			return fmt.Errorf("updating protocol: %w", err)
		}

		tenant = t
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventRegister,
			TenantID:   id,
			Actor:      payer,
			Subject:    addr,
			Amount:     p.FeeAmount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

// Renew pays one more subscription period for the tenant. Any payer may
// renew any tenant; only the named tenant is updated.
func (s *LedgerService) Renew(ctx context.Context, id domain.TenantID, payer domain.Address) (domain.Tenant, error) {
	if payer == "" {
		return domain.Tenant{}, domain.ErrNotAuthorized
	}
	now := s.clock()

	var tenant domain.Tenant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.protocol.Get(ctx)
		if err != nil {
			return err
		}
		t, err := s.tenants.GetByID(ctx, id)
		if err != nil {
			return err
		}

		current, err := s.currentStatus(ctx, p, t, now)
		if err != nil {
			return err
		}
		next, err := s.validator.Apply(ctx, current, domain.EventRenew)
		if err != nil {
			return err
		}

		if err := s.collectFee(ctx, &p, payer); err != nil {
			return err
		}

		t.RecordPayment(next, now)
		if err := s.tenants.Update(ctx, t); err != nil {
			return fmt.Errorf("updating tenant: %w", err)
		}
		p.UpdatedAt = now
		if err := s.protocol.Update(ctx, p); err != nil {
			return fmt.Errorf("updating protocol: %w", err)
		}

		tenant = t
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventRenew,
			TenantID:   id,
			Actor:      payer,
			Subject:    t.Address,
			Amount:     p.FeeAmount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

// GetTenant returns a tenant with its subscription status evaluated at the
// current time. The stored record is not modified.
func (s *LedgerService) GetTenant(ctx context.Context, id domain.TenantID) (domain.Tenant, error) {
	p, err := s.protocol.Get(ctx)
	if err != nil {
		return domain.Tenant{}, err
	}
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	t.Status, err = s.currentStatus(ctx, p, t, s.clock())
	if err != nil {
		return domain.Tenant{}, err
	}
	return t, nil
}

// ListTenants returns tenants matching the filter with evaluated statuses.
func (s *LedgerService) ListTenants(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	p, err := s.protocol.Get(ctx)
	if err != nil {
		return nil, err
	}
	tenants, err := s.tenants.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	for i := range tenants {
		tenants[i].Status, err = s.currentStatus(ctx, p, tenants[i], now)
		if err != nil {
			return nil, err
		}
	}
	return tenants, nil
}

func (s *LedgerService) publish(ctx context.Context, n domain.Notice) error {
	if err := s.publisher.Publish(ctx, n); err != nil {
		return fmt.Errorf("publishing %q notice: %w", n.Event, err)
	}
	return nil
}
