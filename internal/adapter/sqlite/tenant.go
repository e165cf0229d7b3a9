package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/certiq/internal/domain"
)

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	store *Store
}

// NewTenantRepository returns a repository over the store's database.
func NewTenantRepository(store *Store) *TenantRepository {
	return &TenantRepository{store: store}
}

const tenantColumns = `id, address, bump, authority, update_authority, last_payment_at, status, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	q := r.store.conn(ctx)
	_, err := q.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(t.ID), string(t.Address), int64(t.Bump), string(t.Authority), string(t.UpdateAuthority),
		formatTime(t.LastPaymentAt), string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}

	for _, ref := range t.Collections.All() {
		if err := r.AppendCollection(ctx, t.ID, ref); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id domain.TenantID) (domain.Tenant, error) {
	q := r.store.conn(ctx)
	t, err := scanTenant(q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, int64(id),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, err
	}

	if err := r.loadCollections(ctx, &t); err != nil {
		return domain.Tenant{}, err
	}
	return t, nil
}

func (r *TenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any

	if filter.Authority != nil {
		query += ` WHERE authority = ?`
		args = append(args, string(*filter.Authority))
	}

	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	tenants, err := r.queryTenants(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// Collections are loaded after the cursor is closed: the store holds a
	// single connection.
	for i := range tenants {
		if err := r.loadCollections(ctx, &tenants[i]); err != nil {
			return nil, err
		}
	}
	return tenants, nil
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]domain.Tenant, error) {
	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Update writes the subscription fields. Collections are only ever appended,
// through AppendCollection.
func (r *TenantRepository) Update(ctx context.Context, t domain.Tenant) error {
	result, err := r.store.conn(ctx).ExecContext(ctx,
		`UPDATE tenants SET last_payment_at = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		formatTime(t.LastPaymentAt), string(t.Status), formatTime(t.UpdatedAt), int64(t.ID),
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// AppendCollection stores ref at the next free position of the tenant's list.
func (r *TenantRepository) AppendCollection(ctx context.Context, id domain.TenantID, ref domain.CollectionRef) error {
	_, err := r.store.conn(ctx).ExecContext(ctx,
		`INSERT INTO collections (tenant_id, position, address, bump, name, uri)
		 VALUES (?, (SELECT COUNT(*) FROM collections WHERE tenant_id = ?), ?, ?, ?, ?)`,
		int64(id), int64(id), string(ref.Address), int64(ref.Bump), ref.Name, ref.URI,
	)
	if err != nil {
		switch {
		case isCheckViolation(err):
			return domain.ErrCollectionLimitReached
		case isForeignKeyViolation(err):
			return domain.ErrTenantNotFound
		case isUniqueViolation(err):
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("inserting collection: %w", err)
	}
	return nil
}

func (r *TenantRepository) loadCollections(ctx context.Context, t *domain.Tenant) error {
	rows, err := r.store.conn(ctx).QueryContext(ctx,
		`SELECT address, bump, name, uri FROM collections
		 WHERE tenant_id = ? ORDER BY position`, int64(t.ID),
	)
	if err != nil {
		return fmt.Errorf("loading collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref domain.CollectionRef
		var address string
		if err := rows.Scan(&address, &ref.Bump, &ref.Name, &ref.URI); err != nil {
			return fmt.Errorf("scanning collection row: %w", err)
		}
		ref.Address = domain.Address(address)
		if err := t.Collections.Append(ref); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (domain.Tenant, error) {
	var t domain.Tenant
	var id uint16
	var address, authority, updateAuthority, status string
	var lastPayment, createdAt, updatedAt string

	if err := s.Scan(&id, &address, &t.Bump, &authority, &updateAuthority,
		&lastPayment, &status, &createdAt, &updatedAt); err != nil {
		return domain.Tenant{}, err
	}

	t.ID = domain.TenantID(id)
	t.Address = domain.Address(address)
	t.Authority = domain.Address(authority)
	t.UpdateAuthority = domain.Address(updateAuthority)
	t.Status = domain.Status(status)

	var err error
	if t.LastPaymentAt, err = parseTime(lastPayment); err != nil {
		return domain.Tenant{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Tenant{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Tenant{}, err
	}
	return t, nil
}
