package river_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	riveradapter "github.com/neomorfeo/certiq/internal/adapter/river"
	"github.com/neomorfeo/certiq/internal/adapter/sqlite"
	"github.com/neomorfeo/certiq/internal/domain"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(t.TempDir() + "/river_test.db")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func setupClient(t *testing.T, store *sqlite.Store) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), store.DB())
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func sampleNotice() domain.Notice {
	return domain.Notice{
		Event:      domain.EventCertificateMinted,
		TenantID:   42,
		Actor:      "alice",
		Subject:    "cert-1",
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_Publish_EnqueuesJob(t *testing.T) {
	store := setupStore(t)
	client := setupClient(t, store)

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()
	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	if err := pub.Publish(context.Background(), sampleNotice()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "ledger.notice" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "ledger.notice")
		}
		argsStr := string(event.Job.EncodedArgs)
		for _, want := range []string{`"event":"certificate_minted"`, `"tenant_id":42`, `"actor":"alice"`, `"subject":"cert-1"`} {
			if !strings.Contains(argsStr, want) {
				t.Errorf("encoded args missing %s, got: %s", want, argsStr)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestPublisher_Publish_InTransaction(t *testing.T) {
	store := setupStore(t)
	client := setupClient(t, store)
	pub := riveradapter.NewPublisher(client)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if err := pub.Publish(ctx, sampleNotice()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	jobs, err := client.JobList(ctx, goriver.NewJobListParams())
	if err != nil {
		t.Fatalf("JobList failed: %v", err)
	}
	if len(jobs.Jobs) != 0 {
		t.Errorf("rolled-back notice left %d jobs", len(jobs.Jobs))
	}

	err = store.WithinTx(ctx, func(ctx context.Context) error {
		return pub.Publish(ctx, sampleNotice())
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	jobs, err = client.JobList(ctx, goriver.NewJobListParams())
	if err != nil {
		t.Fatalf("JobList failed: %v", err)
	}
	if len(jobs.Jobs) != 1 {
		t.Errorf("committed notice produced %d jobs, want 1", len(jobs.Jobs))
	}
}
