package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neomorfeo/certiq/internal/adapter/derive"
	"github.com/neomorfeo/certiq/internal/adapter/sqlite"
	"github.com/neomorfeo/certiq/internal/domain"
)

const decimals = 6

func newTestLedger(t *testing.T) (*sqlite.Store, *sqlite.PaymentLedger, *derive.Deriver) {
	t.Helper()
	store := newTestStore(t)
	deriver := derive.New("")
	return store, sqlite.NewPaymentLedger(store, deriver, decimals), deriver
}

func mustDeposit(t *testing.T, ledger *sqlite.PaymentLedger, owner domain.Address, amount uint64) {
	t.Helper()
	if _, err := ledger.Deposit(context.Background(), owner, amount); err != nil {
		t.Fatalf("mustDeposit failed: %v", err)
	}
}

func assertBalance(t *testing.T, ledger *sqlite.PaymentLedger, owner domain.Address, want uint64) {
	t.Helper()
	got, err := ledger.Balance(context.Background(), owner)
	if err != nil {
		t.Fatalf("Balance(%s) failed: %v", owner, err)
	}
	if got != want {
		t.Errorf("Balance(%s) = %d, want %d", owner, got, want)
	}
}

func TestPayment_UnknownAccountIsEmpty(t *testing.T) {
	_, ledger, _ := newTestLedger(t)
	assertBalance(t, ledger, "nobody", 0)
}

func TestPayment_DepositBeyondStorableRange(t *testing.T) {
	_, ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := ledger.Deposit(ctx, "alice", 1<<63); !errors.Is(err, domain.ErrCounterOverflow) {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}

	balance, err := ledger.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestPayment_Deposit(t *testing.T) {
	_, ledger, _ := newTestLedger(t)
	ctx := context.Background()

	mustDeposit(t, ledger, "alice", 100)
	total, err := ledger.Deposit(ctx, "alice", 50)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if total != 150 {
		t.Errorf("total = %d, want 150", total)
	}

	var verr *domain.ValidationError
	if _, err := ledger.Deposit(ctx, "alice", 0); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for zero deposit, got %v", err)
	}
}

func TestPayment_PersonalTransfer(t *testing.T) {
	_, ledger, _ := newTestLedger(t)
	mustDeposit(t, ledger, "alice", 100)

	err := ledger.Transfer(context.Background(), domain.Transfer{
		From: "alice", To: "bob", Authority: domain.SignedBy("alice"), Amount: 40, Decimals: decimals,
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	assertBalance(t, ledger, "alice", 60)
	assertBalance(t, ledger, "bob", 40)
}

func TestPayment_TransferRejections(t *testing.T) {
	_, ledger, _ := newTestLedger(t)
	mustDeposit(t, ledger, "alice", 100)

	tests := []struct {
		name     string
		transfer domain.Transfer
		check    func(error) bool
	}{
		{
			name:     "signer is not the source",
			transfer: domain.Transfer{From: "alice", To: "mallory", Authority: domain.SignedBy("mallory"), Amount: 10, Decimals: decimals},
			check:    func(err error) bool { return errors.Is(err, domain.ErrNotAuthorized) },
		},
		{
			name:     "decimals mismatch",
			transfer: domain.Transfer{From: "alice", To: "bob", Authority: domain.SignedBy("alice"), Amount: 10, Decimals: 9},
			check:    func(err error) bool { return errors.Is(err, domain.ErrDecimalsMismatch) },
		},
		{
			name:     "insufficient funds",
			transfer: domain.Transfer{From: "alice", To: "bob", Authority: domain.SignedBy("alice"), Amount: 101, Decimals: decimals},
			check: func(err error) bool {
				var ife *domain.InsufficientFundsError
				return errors.As(err, &ife) && ife.Available == 100 && ife.Needed == 101
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.Transfer(context.Background(), tt.transfer)
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			assertBalance(t, ledger, "alice", 100)
		})
	}
}

func TestPayment_RecordSignedTransfer(t *testing.T) {
	store, ledger, deriver := newTestLedger(t)
	ctx := context.Background()

	addr, bump := deriver.Derive(domain.NamespaceProtocol, nil)
	p, _ := domain.NewProtocol(addr, bump, "admin", 100, decimals, 3600, epoch)
	if err := sqlite.NewProtocolRepository(store).Create(ctx, p); err != nil {
		t.Fatalf("creating protocol: %v", err)
	}
	mustDeposit(t, ledger, "alice", 100)
	if err := ledger.Transfer(ctx, domain.Transfer{
		From: "alice", To: addr, Authority: domain.SignedBy("alice"), Amount: 100, Decimals: decimals,
	}); err != nil {
		t.Fatalf("paying treasury: %v", err)
	}

	t.Run("personal signature cannot move record funds", func(t *testing.T) {
		err := ledger.Transfer(ctx, domain.Transfer{
			From: addr, To: "admin", Authority: domain.SignedBy(addr), Amount: 10, Decimals: decimals,
		})
		if !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
	})

	t.Run("wrong seeds are rejected", func(t *testing.T) {
		bad := p.TreasurySigner()
		bad.Seeds.Bump--
		err := ledger.Transfer(ctx, domain.Transfer{
			From: addr, To: "admin", Authority: bad, Amount: 10, Decimals: decimals,
		})
		if !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
	})

	t.Run("treasury signer moves funds", func(t *testing.T) {
		err := ledger.Transfer(ctx, domain.Transfer{
			From: addr, To: "admin", Authority: p.TreasurySigner(), Amount: 30, Decimals: decimals,
		})
		if err != nil {
			t.Fatalf("Transfer failed: %v", err)
		}
		assertBalance(t, ledger, addr, 70)
		assertBalance(t, ledger, "admin", 30)
	})
}

func TestPayment_TransferJoinsTransaction(t *testing.T) {
	store, ledger, _ := newTestLedger(t)
	mustDeposit(t, ledger, "alice", 100)
	boom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := ledger.Transfer(ctx, domain.Transfer{
			From: "alice", To: "bob", Authority: domain.SignedBy("alice"), Amount: 100, Decimals: decimals,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	assertBalance(t, ledger, "alice", 100)
	assertBalance(t, ledger, "bob", 0)
}
