package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/trialscope/internal/ports"
)

const (
	serviceName    = "trialscope"
	serviceVersion = "1.0.0"
)

// Exporter exports service metrics to an OTEL Collector.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	meter         metric.Meter
	requestsTotal metric.Int64Counter
	requestHist   metric.Float64Histogram
	reloadsTotal  metric.Int64Counter
	reloadHist    metric.Float64Histogram
	recordsGauge  metric.Int64Histogram
	droppedTotal  metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	e, err := newInstruments(provider.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	e.provider = provider
	return e, nil
}

func newInstruments(meter metric.Meter) (*Exporter, error) {
	requestsTotal, err := meter.Int64Counter(
		"trialscope_http_requests_total",
		metric.WithDescription("Total HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}

	requestHist, err := meter.Float64Histogram(
		"trialscope_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request histogram: %w", err)
	}

	reloadsTotal, err := meter.Int64Counter(
		"trialscope_reloads_total",
		metric.WithDescription("Total record set rebuilds"),
		metric.WithUnit("{reload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reloads counter: %w", err)
	}

	reloadHist, err := meter.Float64Histogram(
		"trialscope_reload_duration_seconds",
		metric.WithDescription("Record set rebuild time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reload histogram: %w", err)
	}

	recordsGauge, err := meter.Int64Histogram(
		"trialscope_records_loaded",
		metric.WithDescription("Records kept per rebuild"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating records histogram: %w", err)
	}

	droppedTotal, err := meter.Int64Counter(
		"trialscope_records_dropped_total",
		metric.WithDescription("Records dropped by soft delete, orphaning or duplication"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return &Exporter{
		meter:         meter,
		requestsTotal: requestsTotal,
		requestHist:   requestHist,
		reloadsTotal:  reloadsTotal,
		reloadHist:    reloadHist,
		recordsGauge:  recordsGauge,
		droppedTotal:  droppedTotal,
	}, nil
}

// RecordRequest records one served HTTP request.
func (e *Exporter) RecordRequest(ctx context.Context, m ports.RequestMetrics) {
	opt := metric.WithAttributes(
		attribute.String("route", m.Route),
		attribute.String("method", m.Method),
		attribute.Int("status", m.Status),
	)
	e.requestsTotal.Add(ctx, 1, opt)
	e.requestHist.Record(ctx, m.Duration.Seconds(), opt)
}

// RecordReload records one record set rebuild.
func (e *Exporter) RecordReload(ctx context.Context, m ports.ReloadMetrics) {
	result := "ok"
	if m.Err != nil {
		result = "error"
	}
	opt := metric.WithAttributes(
		attribute.String("source", m.Source),
		attribute.String("result", result),
	)
	e.reloadsTotal.Add(ctx, 1, opt)
	e.reloadHist.Record(ctx, m.Duration.Seconds(), opt)
	if m.Err != nil {
		return
	}

	for kind, n := range map[string]int{"experiment": m.Experiments, "trial": m.Trials, "run": m.Runs} {
		e.recordsGauge.Record(ctx, int64(n), metric.WithAttributes(
			attribute.String("source", m.Source),
			attribute.String("kind", kind),
		))
	}
	e.droppedTotal.Add(ctx, int64(m.Dropped), metric.WithAttributes(attribute.String("reason", "dropped")))
	e.droppedTotal.Add(ctx, int64(m.Invalid), metric.WithAttributes(attribute.String("reason", "invalid")))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
