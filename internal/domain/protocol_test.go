package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/neomorfeo/certiq/internal/domain"
)

func newProtocol(t *testing.T) domain.Protocol {
	t.Helper()
	p, err := domain.NewProtocol("protocol-addr", 253, "admin", 100, 6, 31536000, time.Now())
	if err != nil {
		t.Fatalf("NewProtocol: %v", err)
	}
	return p
}

func TestNewProtocol_RejectsNonPositivePeriod(t *testing.T) {
	for _, period := range []int64{0, -1} {
		_, err := domain.NewProtocol("p", 255, "admin", 100, 6, period, time.Now())
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("period %d: expected ValidationError, got %v", period, err)
		}
	}
}

func TestNewProtocol_RejectsOutOfRangeParameters(t *testing.T) {
	tests := []struct {
		name   string
		fee    uint64
		period int64
		field  string
	}{
		{"period beyond duration range", 100, domain.MaxSubscriptionPeriod + 1, "subscription_period"},
		{"ten billion second period", 100, 10_000_000_000, "subscription_period"},
		{"fee beyond storable range", 1 << 63, 31536000, "fee_amount"},
		{"max uint64 fee", math.MaxUint64, 31536000, "fee_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewProtocol("p", 255, "admin", tt.fee, 6, tt.period, time.Now())
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestNewProtocol_AcceptsUpperBounds(t *testing.T) {
	p, err := domain.NewProtocol("p", 255, "admin", domain.MaxFeeAmount, 6, domain.MaxSubscriptionPeriod, time.Now())
	if err != nil {
		t.Fatalf("NewProtocol: %v", err)
	}
	if p.Period() <= 0 {
		t.Errorf("Period() = %v, want positive", p.Period())
	}

	tenant := domain.NewTenant(1, "college", 255, "alice", "", time.Now())
	if !domain.IsActive(tenant, time.Now(), p.Period()) {
		t.Error("tenant must be active right after payment at the longest period")
	}
}

func TestProtocol_ApplyParametersRejectsOutOfRange(t *testing.T) {
	p := newProtocol(t)

	long := int64(10_000_000_000)
	if err := p.ApplyParameters(nil, &long, time.Now()); err == nil {
		t.Error("expected error for period beyond duration range")
	}
	fee := uint64(1 << 63)
	if err := p.ApplyParameters(&fee, nil, time.Now()); err == nil {
		t.Error("expected error for fee beyond storable range")
	}
	if p.FeeAmount != 100 || p.SubscriptionPeriod != 31536000 {
		t.Errorf("rejected update changed parameters: fee=%d period=%d", p.FeeAmount, p.SubscriptionPeriod)
	}
}

func TestProtocol_NextTenantID(t *testing.T) {
	p := newProtocol(t)

	id, err := p.NextTenantID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}

	p.TenantCount = 41
	if id, _ := p.NextTenantID(); id != 42 {
		t.Errorf("id = %d, want 42", id)
	}

	p.TenantCount = math.MaxUint16
	if _, err := p.NextTenantID(); !errors.Is(err, domain.ErrCounterOverflow) {
		t.Errorf("expected ErrCounterOverflow, got %v", err)
	}
}

func TestProtocol_Authorize(t *testing.T) {
	p := newProtocol(t)
	if err := p.Authorize("admin"); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	if err := p.Authorize("someone"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestProtocol_ApplyParameters_Partial(t *testing.T) {
	p := newProtocol(t)
	fee := uint64(250)

	if err := p.ApplyParameters(&fee, nil, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FeeAmount != 250 {
		t.Errorf("FeeAmount = %d, want 250", p.FeeAmount)
	}
	if p.SubscriptionPeriod != 31536000 {
		t.Errorf("SubscriptionPeriod changed to %d", p.SubscriptionPeriod)
	}

	period := int64(86400)
	if err := p.ApplyParameters(nil, &period, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FeeAmount != 250 || p.SubscriptionPeriod != 86400 {
		t.Errorf("got fee=%d period=%d, want 250/86400", p.FeeAmount, p.SubscriptionPeriod)
	}

	bad := int64(0)
	fee = 1
	if err := p.ApplyParameters(&fee, &bad, time.Now()); err == nil {
		t.Fatal("expected error for zero period")
	}
	if p.FeeAmount != 250 {
		t.Error("rejected update must not change the fee")
	}
}

func TestProtocol_CreditDebit(t *testing.T) {
	p := newProtocol(t)

	if err := p.Credit(300); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := p.Debit(100); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if p.TreasuryBalance != 200 {
		t.Errorf("TreasuryBalance = %d, want 200", p.TreasuryBalance)
	}

	err := p.Debit(201)
	var fundsErr *domain.InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if fundsErr.Available != 200 || fundsErr.Needed != 201 {
		t.Errorf("got available=%d needed=%d", fundsErr.Available, fundsErr.Needed)
	}
	if p.TreasuryBalance != 200 {
		t.Error("failed debit must not change the balance")
	}

	p.TreasuryBalance = math.MaxUint64
	if err := p.Credit(1); !errors.Is(err, domain.ErrCounterOverflow) {
		t.Errorf("expected ErrCounterOverflow, got %v", err)
	}
}

func TestProtocol_TreasurySigner(t *testing.T) {
	p := newProtocol(t)
	s := p.TreasurySigner()

	if !s.IsRecord() {
		t.Fatal("treasury signer must be a record signer")
	}
	if s.Address != p.Address {
		t.Errorf("Address = %q, want %q", s.Address, p.Address)
	}
	if s.Seeds.Namespace != domain.NamespaceProtocol || s.Seeds.Bump != 253 {
		t.Errorf("seeds = %+v", *s.Seeds)
	}
	if domain.SignedBy("admin").IsRecord() {
		t.Error("personal signer reported as record")
	}
}
