package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/neomorfeo/certiq/internal/domain"
)

// SeedVerifier checks that signer seeds derive an address.
type SeedVerifier interface {
	Verify(addr domain.Address, seeds domain.SignerSeeds) bool
}

// PaymentLedger implements domain.PaymentService over an accounts table
// holding balances of a single fee token.
type PaymentLedger struct {
	store    *Store
	verifier SeedVerifier
	decimals uint8
	now      func() time.Time
}

// NewPaymentLedger returns a payment ledger for a token with the given decimals.
func NewPaymentLedger(store *Store, verifier SeedVerifier, decimals uint8) *PaymentLedger {
	return &PaymentLedger{store: store, verifier: verifier, decimals: decimals, now: time.Now}
}

// Transfer moves t.Amount from t.From to t.To. A personal signer must be
// the source account itself; a record signer must present seeds that derive
// the source address.
func (l *PaymentLedger) Transfer(ctx context.Context, t domain.Transfer) error {
	if t.Decimals != l.decimals {
		return fmt.Errorf("%w: got %d, token has %d", domain.ErrDecimalsMismatch, t.Decimals, l.decimals)
	}
	if t.From == "" || t.To == "" {
		return &domain.ValidationError{Field: "account", Reason: "must not be empty"}
	}
	if t.Authority.Address != t.From {
		return domain.ErrNotAuthorized
	}

	return l.store.WithinTx(ctx, func(ctx context.Context) error {
		if t.Authority.IsRecord() {
			if !l.verifier.Verify(t.From, *t.Authority.Seeds) {
				return domain.ErrNotAuthorized
			}
		} else {
			record, err := l.isRecord(ctx, t.From)
			if err != nil {
				return err
			}
			if record {
				return domain.ErrNotAuthorized
			}
		}

		if t.Amount == 0 || t.From == t.To {
			return nil
		}

		from, err := l.balance(ctx, t.From)
		if err != nil {
			return err
		}
		if from < t.Amount {
			return &domain.InsufficientFundsError{Account: t.From, Needed: t.Amount, Available: from}
		}
		to, err := l.balance(ctx, t.To)
		if err != nil {
			return err
		}
		if to > math.MaxUint64-t.Amount {
			return domain.ErrCounterOverflow
		}

		if err := l.setBalance(ctx, t.From, from-t.Amount); err != nil {
			return err
		}
		return l.setBalance(ctx, t.To, to+t.Amount)
	})
}

// Balance returns the funds held by owner. Unknown accounts hold zero.
func (l *PaymentLedger) Balance(ctx context.Context, owner domain.Address) (uint64, error) {
	return l.balance(ctx, owner)
}

// Deposit mints amount into owner's account. It backs the development faucet.
func (l *PaymentLedger) Deposit(ctx context.Context, owner domain.Address, amount uint64) (uint64, error) {
	if owner == "" {
		return 0, &domain.ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if amount == 0 {
		return 0, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	var out uint64
	err := l.store.WithinTx(ctx, func(ctx context.Context) error {
		current, err := l.balance(ctx, owner)
		if err != nil {
			return err
		}
		if current > math.MaxUint64-amount {
			return domain.ErrCounterOverflow
		}
		out = current + amount
		return l.setBalance(ctx, owner, out)
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

func (l *PaymentLedger) balance(ctx context.Context, owner domain.Address) (uint64, error) {
	var balance int64
	err := l.store.conn(ctx).QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE owner = ?`, string(owner),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	return uint64(balance), nil
}

func (l *PaymentLedger) setBalance(ctx context.Context, owner domain.Address, amount uint64) error {
	stored, err := toStored(amount)
	if err != nil {
		return err
	}
	_, err = l.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO accounts (owner, balance, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (owner) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		string(owner), stored, formatTime(l.now()),
	)
	if err != nil {
		return fmt.Errorf("writing balance: %w", err)
	}
	return nil
}

// isRecord reports whether addr belongs to a derived ledger record. Such
// accounts only move funds on seed signatures.
func (l *PaymentLedger) isRecord(ctx context.Context, addr domain.Address) (bool, error) {
	var n int
	err := l.store.conn(ctx).QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM protocol WHERE address = ?)
		      + (SELECT COUNT(*) FROM tenants WHERE address = ?)
		      + (SELECT COUNT(*) FROM collections WHERE address = ?)`,
		string(addr), string(addr), string(addr),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking record address: %w", err)
	}
	return n > 0, nil
}
