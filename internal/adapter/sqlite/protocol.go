package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/certiq/internal/domain"
)

// ProtocolRepository implements domain.ProtocolRepository using SQLite.
type ProtocolRepository struct {
	store *Store
}

// NewProtocolRepository returns a repository over the store's database.
func NewProtocolRepository(store *Store) *ProtocolRepository {
	return &ProtocolRepository{store: store}
}

func (r *ProtocolRepository) Create(ctx context.Context, p domain.Protocol) error {
	fee, err := toStored(p.FeeAmount)
	if err != nil {
		return err
	}
	balance, err := toStored(p.TreasuryBalance)
	if err != nil {
		return err
	}

	_, err = r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO protocol (id, address, bump, admin, fee_amount, fee_decimals,
		     subscription_period, tenant_count, treasury_balance, created_at, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.Address), int64(p.Bump), string(p.Admin), fee, int64(p.FeeDecimals),
		p.SubscriptionPeriod, int64(p.TenantCount), balance,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyInitialized
		}
		return fmt.Errorf("inserting protocol: %w", err)
	}
	return nil
}

func (r *ProtocolRepository) Get(ctx context.Context) (domain.Protocol, error) {
	var (
		p                    domain.Protocol
		address, admin       string
		fee, balance         int64
		createdAt, updatedAt string
	)

	err := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT address, bump, admin, fee_amount, fee_decimals, subscription_period,
		     tenant_count, treasury_balance, created_at, updated_at
		 FROM protocol WHERE id = 1`,
	).Scan(&address, &p.Bump, &admin, &fee, &p.FeeDecimals, &p.SubscriptionPeriod,
		&p.TenantCount, &balance, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Protocol{}, domain.ErrProtocolNotInitialized
		}
		return domain.Protocol{}, fmt.Errorf("scanning protocol: %w", err)
	}

	p.Address = domain.Address(address)
	p.Admin = domain.Address(admin)
	p.FeeAmount = uint64(fee)
	p.TreasuryBalance = uint64(balance)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Protocol{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Protocol{}, err
	}
	return p, nil
}

// Update writes the mutable fields. Address, bump and admin never change.
func (r *ProtocolRepository) Update(ctx context.Context, p domain.Protocol) error {
	fee, err := toStored(p.FeeAmount)
	if err != nil {
		return err
	}
	balance, err := toStored(p.TreasuryBalance)
	if err != nil {
		return err
	}

	result, err := r.store.conn(ctx).ExecContext(ctx,
		`UPDATE protocol SET fee_amount = ?, subscription_period = ?, tenant_count = ?,
		     treasury_balance = ?, updated_at = ?
		 WHERE id = 1`,
		fee, p.SubscriptionPeriod, int64(p.TenantCount), balance, formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("updating protocol: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrProtocolNotInitialized
	}
	return nil
}
