package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/certiq/internal/domain"
)

// AddCollection creates a new collection for the tenant. The limit check,
// asset creation and append happen in one transaction.
func (s *LedgerService) AddCollection(ctx context.Context, id domain.TenantID, caller domain.Address, name, uri string) (domain.CollectionRef, error) {
	if err := domain.ValidateCollection(name, uri); err != nil {
		return domain.CollectionRef{}, err
	}
	now := s.clock()

	var ref domain.CollectionRef
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, t, err := s.loadGated(ctx, id, caller, now)
		if err != nil {
			return err
		}
		if t.Collections.Full() {
			return domain.ErrCollectionLimitReached
		}

		addr, bump := s.deriver.Derive(domain.NamespaceCollection, domain.CollectionKey(id, t.Collections.Len()))
		created, err := s.issuer.Create(ctx, domain.AssetRequest{
			Address:         addr,
			Kind:            domain.AssetCollection,
			Owner:           t.Authority,
			Authority:       t.Authority,
			UpdateAuthority: t.Authority,
			Name:            name,
			URI:             uri,
			Attributes:      domain.CollectionAttributes(id),
		})
		if err != nil {
			return fmt.Errorf("creating collection asset: %w", err)
		}

		r := domain.CollectionRef{Address: created, Bump: bump, Name: name, URI: uri}
		if err := t.Collections.Append(r); err != nil {
			return err
		}
		if err := s.tenants.AppendCollection(ctx, id, r); err != nil {
			return err
		}

		ref = r
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventCollectionAdded,
			TenantID:   id,
			Actor:      caller,
			Subject:    created,
			OccurredAt: now,
		})
	})
	if err != nil {
		return domain.CollectionRef{}, err
	}
	return ref, nil
}
