package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/neomorfeo/certiq/internal/adapter/otel"
	"github.com/neomorfeo/certiq/internal/domain"
)

// --- Mock publisher ---

type mockPublisher struct {
	notices []domain.Notice
}

func (m *mockPublisher) Publish(_ context.Context, n domain.Notice) error {
	m.notices = append(m.notices, n)
	return nil
}

type failingPublisher struct{}

func (p *failingPublisher) Publish(_ context.Context, _ domain.Notice) error {
	return fmt.Errorf("publish failed")
}

// --- Tests ---

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	notice := domain.Notice{Event: domain.EventCollectionAdded, TenantID: 3, Actor: "alice", OccurredAt: now}
	if err := pub.Publish(context.Background(), notice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.type", "collection_added")
	assertAttribute(t, spans[0], "event.actor", "alice")
	assertAttribute(t, spans[0], "tenant.id", "3")

	if len(inner.notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(inner.notices))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&failingPublisher{})

	err := pub.Publish(context.Background(), domain.Notice{Event: domain.EventFeesWithdrawn, Actor: "admin"})
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
