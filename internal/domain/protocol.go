package domain

import (
	"fmt"
	"math"
	"time"
)

// Protocol is the singleton ledger record: admin identity, fee schedule,
// subscription period, tenant counter and the escrowed treasury balance.
type Protocol struct {
	Address            Address
	Bump               uint8
	Admin              Address
	FeeAmount          uint64
	FeeDecimals        uint8
	SubscriptionPeriod int64 // seconds
	TenantCount        uint16
	TreasuryBalance    uint64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Upper bounds for protocol parameters. Fees are stored as signed 64-bit
// integers, and periods must fit a time.Duration.
const (
	MaxFeeAmount          uint64 = math.MaxInt64
	MaxSubscriptionPeriod int64  = math.MaxInt64 / int64(time.Second)
)

// NewProtocol creates the ledger record for a fresh deployment.
func NewProtocol(addr Address, bump uint8, admin Address, fee uint64, decimals uint8, period int64, now time.Time) (Protocol, error) {
	if err := validatePeriod(period); err != nil {
		return Protocol{}, err
	}
	if err := validateFee(fee); err != nil {
		return Protocol{}, err
	}
	now = now.UTC()
	return Protocol{
		Address:            addr,
		Bump:               bump,
		Admin:              admin,
		FeeAmount:          fee,
		FeeDecimals:        decimals,
		SubscriptionPeriod: period,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func validatePeriod(period int64) error {
	if period <= 0 {
		return &ValidationError{Field: "subscription_period", Reason: "must be positive"}
	}
	if period > MaxSubscriptionPeriod {
		return &ValidationError{Field: "subscription_period", Reason: fmt.Sprintf("must be at most %d seconds", MaxSubscriptionPeriod)}
	}
	return nil
}

func validateFee(fee uint64) error {
	if fee > MaxFeeAmount {
		return &ValidationError{Field: "fee_amount", Reason: fmt.Sprintf("must be at most %d", MaxFeeAmount)}
	}
	return nil
}

// Period returns the subscription period as a duration.
func (p Protocol) Period() time.Duration {
	return time.Duration(p.SubscriptionPeriod) * time.Second
}

// NextTenantID returns the id the next registered tenant receives.
func (p Protocol) NextTenantID() (TenantID, error) {
	if p.TenantCount == math.MaxUint16 {
		return 0, ErrCounterOverflow
	}
	return TenantID(p.TenantCount + 1), nil
}

// Authorize checks that caller is the protocol admin.
func (p Protocol) Authorize(caller Address) error {
	if caller == "" || caller != p.Admin {
		return ErrNotAuthorized
	}
	return nil
}

// ApplyParameters updates only the supplied fields.
func (p *Protocol) ApplyParameters(fee *uint64, period *int64, now time.Time) error {
	if period != nil {
		if err := validatePeriod(*period); err != nil {
			return err
		}
	}
	if fee != nil {
		if err := validateFee(*fee); err != nil {
			return err
		}
		p.FeeAmount = *fee
	}
	if period != nil {
		p.SubscriptionPeriod = *period
	}
	p.UpdatedAt = now.UTC()
	return nil
}

// Credit records fees received into the treasury.
func (p *Protocol) Credit(amount uint64) error {
	if p.TreasuryBalance > math.MaxUint64-amount {
		return ErrCounterOverflow
	}
	p.TreasuryBalance += amount
	return nil
}

// Debit records fees leaving the treasury.
func (p *Protocol) Debit(amount uint64) error {
	if amount > p.TreasuryBalance {
		return &InsufficientFundsError{Account: p.Address, Needed: amount, Available: p.TreasuryBalance}
	}
	p.TreasuryBalance -= amount
	return nil
}

// TreasurySigner returns the capability with which the protocol record signs
// transfers out of its own treasury.
func (p Protocol) TreasurySigner() Signer {
	return Signer{
		Address: p.Address,
		Seeds:   &SignerSeeds{Namespace: NamespaceProtocol, Bump: p.Bump},
	}
}
