package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/certiq/internal/domain"
)

const tracerName = "github.com/neomorfeo/certiq/internal/adapter/otel"

// recordError marks span as failed when err is non-nil.
func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracingProtocolRepository wraps a domain.ProtocolRepository with OpenTelemetry tracing.
type TracingProtocolRepository struct {
	next   domain.ProtocolRepository
	tracer trace.Tracer
}

// Compile-time check: TracingProtocolRepository implements domain.ProtocolRepository.
var _ domain.ProtocolRepository = (*TracingProtocolRepository)(nil)

// NewTracingProtocolRepository creates a tracing decorator around the given repository.
func NewTracingProtocolRepository(next domain.ProtocolRepository) *TracingProtocolRepository {
	return &TracingProtocolRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingProtocolRepository) Create(ctx context.Context, p domain.Protocol) error {
	ctx, span := r.tracer.Start(ctx, "ProtocolRepository.Create",
		trace.WithAttributes(
			attribute.String("protocol.address", string(p.Address)),
			attribute.String("protocol.admin", string(p.Admin)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, p)
	recordError(span, err)
	return err
}

func (r *TracingProtocolRepository) Get(ctx context.Context) (domain.Protocol, error) {
	ctx, span := r.tracer.Start(ctx, "ProtocolRepository.Get")
	defer span.End()

	p, err := r.next.Get(ctx)
	recordError(span, err)
	return p, err
}

func (r *TracingProtocolRepository) Update(ctx context.Context, p domain.Protocol) error {
	ctx, span := r.tracer.Start(ctx, "ProtocolRepository.Update",
		trace.WithAttributes(
			attribute.Int("protocol.tenant_count", int(p.TenantCount)),
			attribute.Int64("protocol.subscription_period", p.SubscriptionPeriod),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, p)
	recordError(span, err)
	return err
}

// TracingTenantRepository wraps a domain.TenantRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingTenantRepository struct {
	next   domain.TenantRepository
	tracer trace.Tracer
}

// Compile-time check: TracingTenantRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TracingTenantRepository)(nil)

// NewTracingTenantRepository creates a tracing decorator around the given repository.
func NewTracingTenantRepository(next domain.TenantRepository) *TracingTenantRepository {
	return &TracingTenantRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingTenantRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Create",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenant.ID)),
			attribute.String("tenant.authority", string(tenant.Authority)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, tenant)
	recordError(span, err)
	return err
}

func (r *TracingTenantRepository) GetByID(ctx context.Context, id domain.TenantID) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByID",
		trace.WithAttributes(attribute.Int("tenant.id", int(id))),
	)
	defer span.End()

	tenant, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return tenant, err
}

func (r *TracingTenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Authority != nil {
		span.SetAttributes(attribute.String("filter.authority", string(*filter.Authority)))
	}

	tenants, err := r.next.List(ctx, filter)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(tenants)))
	}
	return tenants, err
}

func (r *TracingTenantRepository) Update(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Update",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenant.ID)),
			attribute.String("tenant.status", string(tenant.Status)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, tenant)
	recordError(span, err)
	return err
}

func (r *TracingTenantRepository) AppendCollection(ctx context.Context, id domain.TenantID, ref domain.CollectionRef) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.AppendCollection",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(id)),
			attribute.String("collection.address", string(ref.Address)),
		),
	)
	defer span.End()

	err := r.next.AppendCollection(ctx, id, ref)
	recordError(span, err)
	return err
}
