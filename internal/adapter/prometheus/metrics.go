// Package prometheus exposes ledger activity as Prometheus metrics.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neomorfeo/certiq/internal/domain"
)

// Metrics holds the ledger counters.
type Metrics struct {
	Notices         *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	FeeVolume       *prometheus.CounterVec
	PublishDuration prometheus.Histogram
}

// New registers the ledger metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Notices: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certiq_notices_total",
			Help: "Ledger notices enqueued, by event",
		}, []string{"event"}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certiq_notice_publish_failures_total",
			Help: "Ledger notices that failed to enqueue, by event",
		}, []string{"event"}),
		FeeVolume: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certiq_fee_volume_total",
			Help: "Fee token base units moved, by direction",
		}, []string{"direction"}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "certiq_notice_publish_duration_seconds",
			Help:    "Duration of notice enqueue operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// CountingPublisher wraps a domain.EventPublisher and counts what it publishes.
type CountingPublisher struct {
	next    domain.EventPublisher
	metrics *Metrics
}

// Compile-time check: CountingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*CountingPublisher)(nil)

// NewCountingPublisher creates a counting decorator around next.
func NewCountingPublisher(next domain.EventPublisher, m *Metrics) *CountingPublisher {
	return &CountingPublisher{next: next, metrics: m}
}

func (p *CountingPublisher) Publish(ctx context.Context, notice domain.Notice) error {
	start := time.Now()
	err := p.next.Publish(ctx, notice)
	p.metrics.PublishDuration.Observe(time.Since(start).Seconds())

	event := string(notice.Event)
	if err != nil {
		p.metrics.PublishFailures.WithLabelValues(event).Inc()
		return err
	}

	p.metrics.Notices.WithLabelValues(event).Inc()
	switch notice.Event {
	case domain.EventRegister, domain.EventRenew:
		p.metrics.FeeVolume.WithLabelValues("collected").Add(float64(notice.Amount))
	case domain.EventFeesWithdrawn:
		p.metrics.FeeVolume.WithLabelValues("withdrawn").Add(float64(notice.Amount))
	}
	return nil
}
