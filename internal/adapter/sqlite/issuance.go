package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neomorfeo/certiq/internal/domain"
)

// AssetStore implements domain.IssuanceService. Records marked immutable
// are protected by triggers against later updates or deletes.
type AssetStore struct {
	store *Store
	now   func() time.Time
}

// NewAssetStore returns an issuance service over the store's database.
func NewAssetStore(store *Store) *AssetStore {
	return &AssetStore{store: store, now: time.Now}
}

// Create stores a new asset and returns its address. Certificates must name
// an existing collection whose authority matches the request.
func (s *AssetStore) Create(ctx context.Context, req domain.AssetRequest) (domain.Address, error) {
	switch req.Kind {
	case domain.AssetCollection, domain.AssetCertificate:
	default:
		return "", &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown asset kind %q", req.Kind)}
	}
	if req.Owner == "" {
		return "", &domain.ValidationError{Field: "owner", Reason: "must not be empty"}
	}

	addr := req.Address
	if addr == "" {
		addr = domain.Address(uuid.NewString())
	}

	attrs, err := json.Marshal(req.Attributes)
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		var collection sql.NullString
		if req.Kind == domain.AssetCertificate {
			if err := s.checkCollection(ctx, req); err != nil {
				return err
			}
			collection = sql.NullString{String: string(req.Collection), Valid: true}
		}

		_, err := s.store.conn(ctx).ExecContext(ctx,
			`INSERT INTO assets (address, kind, owner, authority, update_authority, collection,
			     name, uri, attributes, immutable, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(addr), string(req.Kind), string(req.Owner), string(req.Authority),
			string(req.UpdateAuthority), collection, req.Name, req.URI, string(attrs),
			boolInt(req.Immutable), formatTime(s.now()),
		)
		if err != nil {
			if isUniqueViolation(err) || isPrimaryKeyViolation(err) {
				return domain.ErrDuplicateIdentifier
			}
			return fmt.Errorf("inserting asset: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

func (s *AssetStore) checkCollection(ctx context.Context, req domain.AssetRequest) error {
	parent, err := s.Get(ctx, req.Collection)
	if err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			return domain.ErrCollectionNotFound
		}
		return err
	}
	if parent.Kind != domain.AssetCollection {
		return domain.ErrCollectionNotFound
	}
	if parent.UpdateAuthority != req.Authority {
		return domain.ErrNotAuthorized
	}
	return nil
}

// Get returns the asset at addr.
func (s *AssetStore) Get(ctx context.Context, addr domain.Address) (domain.Asset, error) {
	var (
		a          domain.Asset
		kind       string
		owner      string
		update     string
		collection sql.NullString
		attrs      string
		createdAt  string
	)

	err := s.store.conn(ctx).QueryRowContext(ctx,
		`SELECT kind, owner, update_authority, collection, name, uri, attributes, immutable, created_at
		 FROM assets WHERE address = ?`, string(addr),
	).Scan(&kind, &owner, &update, &collection, &a.Name, &a.URI, &attrs, &a.Immutable, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Asset{}, domain.ErrAssetNotFound
		}
		return domain.Asset{}, fmt.Errorf("scanning asset: %w", err)
	}

	a.Address = addr
	a.Kind = domain.AssetKind(kind)
	a.Owner = domain.Address(owner)
	a.UpdateAuthority = domain.Address(update)
	a.Collection = domain.Address(collection.String)
	if err := json.Unmarshal([]byte(attrs), &a.Attributes); err != nil {
		return domain.Asset{}, fmt.Errorf("decoding attributes: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Asset{}, err
	}
	return a, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
