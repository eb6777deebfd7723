// Package metrics wires a Prometheus-backed OpenTelemetry meter into the
// composer: an otel meter feeding a Prometheus exporter, scraped over a
// plain HTTP handler.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const namespace = "composer"

func metricName(subsystem, name string) string {
	return namespace + "_" + subsystem + "_" + name
}

// Service bundles the instruments the composer records against: how long
// compositions take and how they end, and how dispatch attempts resolve.
type Service struct {
	meter    metric.Meter
	registry *prom.Registry
	enabled  bool

	composeDuration  metric.Float64Histogram
	composeOutcomes  metric.Int64Counter
	dispatchAttempts metric.Int64Counter
}

// NewService builds a live Prometheus-backed service when enabled, or a
// no-op one otherwise so call sites never need a nil check.
func NewService(enabled bool) (*Service, error) {
	if !enabled {
		return &Service{meter: noop.NewMeterProvider().Meter(namespace)}, nil
	}

	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	svc := &Service{meter: provider.Meter(namespace), registry: registry, enabled: true}
	if err := svc.initInstruments(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) initInstruments() error {
	var err error
	s.composeDuration, err = s.meter.Float64Histogram(
		metricName("compose", "duration_seconds"),
		metric.WithDescription("Duration of manifest composition runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return fmt.Errorf("compose duration histogram: %w", err)
	}
	s.composeOutcomes, err = s.meter.Int64Counter(
		metricName("compose", "outcomes_total"),
		metric.WithDescription("Composition outcomes grouped by fault kind"),
	)
	if err != nil {
		return fmt.Errorf("compose outcomes counter: %w", err)
	}
	s.dispatchAttempts, err = s.meter.Int64Counter(
		metricName("dispatch", "attempts_total"),
		metric.WithDescription("Dispatch attempts grouped by outcome"),
	)
	if err != nil {
		return fmt.Errorf("dispatch attempts counter: %w", err)
	}
	return nil
}

// RecordCompose records one composition run's duration and outcome, where
// outcome is "success" or a compose.Kind fault string.
func (s *Service) RecordCompose(ctx context.Context, duration time.Duration, outcome string) {
	if s == nil || s.composeDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.composeDuration.Record(ctx, duration.Seconds(), attrs)
	s.composeOutcomes.Add(ctx, 1, attrs)
}

// RecordDispatch records one dispatch attempt's terminal status.
func (s *Service) RecordDispatch(ctx context.Context, status string) {
	if s == nil || s.dispatchAttempts == nil {
		return
	}
	s.dispatchAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// ExporterHandler serves the Prometheus exposition format, or a 503 when
// monitoring is disabled.
func (s *Service) ExporterHandler() http.Handler {
	if s == nil || s.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Enabled reports whether this service is backed by a live Prometheus registry.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// Push sends the current registry to a Pushgateway, for one-shot processes
// (the CLI's compose run) that have no long-running /metrics endpoint for
// anything to scrape. A no-op when disabled or gatewayURL is empty.
func (s *Service) Push(ctx context.Context, gatewayURL, jobName string) error {
	if s == nil || !s.enabled || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, jobName).Gatherer(s.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
