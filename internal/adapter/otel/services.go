package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/certiq/internal/domain"
)

// TracingPaymentService wraps a domain.PaymentService with OpenTelemetry tracing.
type TracingPaymentService struct {
	next   domain.PaymentService
	tracer trace.Tracer
}

var _ domain.PaymentService = (*TracingPaymentService)(nil)

// NewTracingPaymentService creates a tracing decorator around the given service.
func NewTracingPaymentService(next domain.PaymentService) *TracingPaymentService {
	return &TracingPaymentService{next: next, tracer: otel.Tracer(tracerName)}
}

func (s *TracingPaymentService) Transfer(ctx context.Context, t domain.Transfer) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Transfer",
		trace.WithAttributes(
			attribute.String("transfer.from", string(t.From)),
			attribute.String("transfer.to", string(t.To)),
			attribute.Int64("transfer.amount", int64(t.Amount)),
			attribute.Bool("transfer.record_signer", t.Authority.IsRecord()),
		),
	)
	defer span.End()

	err := s.next.Transfer(ctx, t)
	recordError(span, err)
	return err
}

func (s *TracingPaymentService) Balance(ctx context.Context, owner domain.Address) (uint64, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.Balance",
		trace.WithAttributes(attribute.String("account.owner", string(owner))),
	)
	defer span.End()

	balance, err := s.next.Balance(ctx, owner)
	recordError(span, err)
	return balance, err
}

// TracingIssuanceService wraps a domain.IssuanceService with OpenTelemetry tracing.
type TracingIssuanceService struct {
	next   domain.IssuanceService
	tracer trace.Tracer
}

var _ domain.IssuanceService = (*TracingIssuanceService)(nil)

// NewTracingIssuanceService creates a tracing decorator around the given service.
func NewTracingIssuanceService(next domain.IssuanceService) *TracingIssuanceService {
	return &TracingIssuanceService{next: next, tracer: otel.Tracer(tracerName)}
}

func (s *TracingIssuanceService) Create(ctx context.Context, req domain.AssetRequest) (domain.Address, error) {
	ctx, span := s.tracer.Start(ctx, "IssuanceService.Create",
		trace.WithAttributes(
			attribute.String("asset.kind", string(req.Kind)),
			attribute.String("asset.owner", string(req.Owner)),
		),
	)
	defer span.End()

	addr, err := s.next.Create(ctx, req)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("asset.address", string(addr)))
	}
	return addr, err
}

func (s *TracingIssuanceService) Get(ctx context.Context, addr domain.Address) (domain.Asset, error) {
	ctx, span := s.tracer.Start(ctx, "IssuanceService.Get",
		trace.WithAttributes(attribute.String("asset.address", string(addr))),
	)
	defer span.End()

	asset, err := s.next.Get(ctx, addr)
	recordError(span, err)
	return asset, err
}
