package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/certiq/internal/domain"
)

// collectFee moves one subscription fee from payer into the treasury on the
// payer's own signature and records it in the escrow book.
func (s *LedgerService) collectFee(ctx context.Context, p *domain.Protocol, payer domain.Address) error {
	if err := s.payments.Transfer(ctx, domain.Transfer{
		From:      payer,
		To:        p.Address,
		Authority: domain.SignedBy(payer),
		Amount:    p.FeeAmount,
		Decimals:  p.FeeDecimals,
	}); err != nil {
		return fmt.Errorf("collecting fee: %w", err)
	}
	return p.Credit(p.FeeAmount)
}

// Withdraw moves amount from the treasury to the admin. The transfer is
// signed by the protocol record, not by the admin.
func (s *LedgerService) Withdraw(ctx context.Context, caller domain.Address, amount uint64) (domain.Protocol, error) {
	if amount == 0 {
		return domain.Protocol{}, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	now := s.clock()

	var out domain.Protocol
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.protocol.Get(ctx)
		if err != nil {
			return err
		}
		if err := p.Authorize(caller); err != nil {
			return err
		}
		if err := p.Debit(amount); err != nil {
			return err
		}

		if err := s.payments.Transfer(ctx, domain.Transfer{
			From:      p.Address,
			To:        p.Admin,
			Authority: p.TreasurySigner(),
			Amount:    amount,
			Decimals:  p.FeeDecimals,
		}); err != nil {
			return fmt.Errorf("withdrawing fees: %w", err)
		}

		p.UpdatedAt = now
		if err := s.protocol.Update(ctx, p); err != nil {
			return fmt.Errorf("updating protocol: %w", err)
		}

		out = p
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventFeesWithdrawn,
			Actor:      caller,
			Subject:    p.Address,
			Amount:     amount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Protocol{}, err
	}
	return out, nil
}

// UpdateParameters changes the fee and/or subscription period. Nil
// arguments leave the corresponding field untouched.
func (s *LedgerService) UpdateParameters(ctx context.Context, caller domain.Address, fee *uint64, period *int64) (domain.Protocol, error) {
	now := s.clock()

	var out domain.Protocol
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.protocol.Get(ctx)
		if err != nil {
			return err
		}
		if err := p.Authorize(caller); err != nil {
			return err
		}
		if err := p.ApplyParameters(fee, period, now); err != nil {
			return err
		}
		if err := s.protocol.Update(ctx, p); err != nil {
			return fmt.Errorf("updating protocol: %w", err)
		}

		out = p
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventParametersUpdated,
			Actor:      caller,
			Subject:    p.Address,
			Amount:     p.FeeAmount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.Protocol{}, err
	}
	return out, nil
}

// Balance reports the funds held by owner in the payment service.
func (s *LedgerService) Balance(ctx context.Context, owner domain.Address) (uint64, error) {
	return s.payments.Balance(ctx, owner)
}
