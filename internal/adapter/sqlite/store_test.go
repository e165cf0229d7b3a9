package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/certiq/internal/adapter/sqlite"
	"github.com/neomorfeo/certiq/internal/domain"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateProtocol(t *testing.T, store *sqlite.Store) domain.Protocol {
	t.Helper()
	p, err := domain.NewProtocol("protocol-addr", 254, "admin", 100, 6, 3600, epoch)
	if err != nil {
		t.Fatalf("NewProtocol failed: %v", err)
	}
	if err := sqlite.NewProtocolRepository(store).Create(context.Background(), p); err != nil {
		t.Fatalf("mustCreateProtocol failed: %v", err)
	}
	return p
}

func mustCreateTenant(t *testing.T, store *sqlite.Store, id domain.TenantID, authority domain.Address) domain.Tenant {
	t.Helper()
	tenant := domain.NewTenant(id, domain.Address("college-"+string(authority)), 253, authority, "", epoch)
	if err := sqlite.NewTenantRepository(store).Create(context.Background(), tenant); err != nil {
		t.Fatalf("mustCreateTenant failed: %v", err)
	}
	return tenant
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewProtocolRepository(store)
	ctx := context.Background()

	p, _ := domain.NewProtocol("protocol-addr", 254, "admin", 100, 6, 3600, epoch)
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if _, ok := sqlite.TxFrom(ctx); !ok {
			t.Error("expected transaction in context")
		}
		return repo.Create(ctx, p)
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	if _, err := repo.Get(ctx); err != nil {
		t.Errorf("Get after commit failed: %v", err)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewProtocolRepository(store)
	ctx := context.Background()
	boom := errors.New("boom")

	p, _ := domain.NewProtocol("protocol-addr", 254, "admin", 100, 6, 3600, epoch)
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := repo.Get(ctx); !errors.Is(err, domain.ErrProtocolNotInitialized) {
		t.Errorf("expected ErrProtocolNotInitialized after rollback, got %v", err)
	}
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewProtocolRepository(store)
	ctx := context.Background()
	boom := errors.New("boom")

	p, _ := domain.NewProtocol("protocol-addr", 254, "admin", 100, 6, 3600, epoch)
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		inner := store.WithinTx(ctx, func(ctx context.Context) error {
			return repo.Create(ctx, p)
		})
		if inner != nil {
			return inner
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := repo.Get(ctx); !errors.Is(err, domain.ErrProtocolNotInitialized) {
		t.Errorf("inner write should roll back with outer, got %v", err)
	}
}

func TestTxFrom_Empty(t *testing.T) {
	if _, ok := sqlite.TxFrom(context.Background()); ok {
		t.Error("expected no transaction in background context")
	}
}
