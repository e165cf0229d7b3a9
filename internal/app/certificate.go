package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/certiq/internal/domain"
)

// MintCertificate issues an immutable certificate to recipient inside one of
// the tenant's collections. The ledger keeps no state for it; the record
// lives in the issuance service.
func (s *LedgerService) MintCertificate(ctx context.Context, id domain.TenantID, caller, collection, recipient domain.Address, req domain.CertificateMintRequest) (domain.Address, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if recipient == "" {
		return "", &domain.ValidationError{Field: "recipient", Reason: "must not be empty"}
	}
	now := s.clock()

	var asset domain.Address
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, t, err := s.loadGated(ctx, id, caller, now)
		if err != nil {
			return err
		}
		if _, ok := t.Collections.Find(collection); !ok {
			return domain.ErrCollectionNotFound
		}

		created, err := s.issuer.Create(ctx, domain.AssetRequest{
			Kind:            domain.AssetCertificate,
			Owner:           recipient,
			Authority:       caller,
			UpdateAuthority: caller,
			Collection:      collection,
			Name:            req.Name,
			URI:             req.URI,
			Attributes:      req.Attributes(id),
			Immutable:       true,
		})
		if err != nil {
			return fmt.Errorf("creating certificate asset: %w", err)
		}

		asset = created
		return s.publish(ctx, domain.Notice{
			Event:      domain.EventCertificateMinted,
			TenantID:   id,
			Actor:      caller,
			Subject:    created,
			OccurredAt: now,
		})
	})
	if err != nil {
		return "", err
	}
	return asset, nil
}

// GetCertificate returns an issued certificate for verification.
func (s *LedgerService) GetCertificate(ctx context.Context, addr domain.Address) (domain.Asset, error) {
	asset, err := s.issuer.Get(ctx, addr)
	if err != nil {
		return domain.Asset{}, err
	}
	if asset.Kind != domain.AssetCertificate {
		return domain.Asset{}, domain.ErrAssetNotFound
	}
	return asset, nil
}
