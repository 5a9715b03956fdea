// Package telemetry wraps the OpenTelemetry SDK for the correlator's
// metrics (spec §4.6) and per-evaluation tracing spans, grounded on the
// teacher's telemetry/otel.go provider shape: one object owning both a
// trace.Tracer and a metric.Meter, with exporter selection driven by
// configuration rather than build tags.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the correlator's tracer and meter, and five counters: the
// four of spec §4.6 plus alerts_dropped. It has no gauge instrument.
type Provider struct {
	tracer trace.Tracer
	meter  metric.Meter

	traceProvider *sdktrace.TracerProvider

	eventsProcessed   metric.Int64Counter
	rulesEvaluated    metric.Int64Counter
	correlationsFound metric.Int64Counter
	alertsGenerated   metric.Int64Counter
	alertsDropped     metric.Int64Counter
}

// New builds a Provider. When otlpEndpoint is empty, spans are written
// to stdout (local/dev default) rather than dropped — matching the
// teacher's dual-exporter selection in telemetry/otel.go, which always
// produces *some* observable output.
func New(ctx context.Context, serviceName, otlpEndpoint string) (*Provider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceNameKey.String(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	exporter, err := newSpanExporter(ctx, otlpEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	meter := otel.GetMeterProvider().Meter("correlator")

	p := &Provider{
		tracer:        tp.Tracer("correlator/evaluator"),
		meter:         meter,
		traceProvider: tp,
	}

	if p.eventsProcessed, err = meter.Int64Counter("correlator.events_processed"); err != nil {
		return nil, err
	}
	if p.rulesEvaluated, err = meter.Int64Counter("correlator.rules_evaluated"); err != nil {
		return nil, err
	}
	if p.correlationsFound, err = meter.Int64Counter("correlator.correlations_found"); err != nil {
		return nil, err
	}
	if p.alertsGenerated, err = meter.Int64Counter("correlator.alerts_generated"); err != nil {
		return nil, err
	}
	if p.alertsDropped, err = meter.Int64Counter("correlator.alerts_dropped"); err != nil {
		return nil, err
	}

	return p, nil
}

func newSpanExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithoutTimestamps())
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return otlptracegrpc.New(dialCtx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
}

// StartEvaluation begins a span covering one rule's evaluation pass,
// labeled with the rule id so traces double as an audit trail alongside
// the DOT-rendered decision graph. The returned func ends the span; the
// correlator core never touches trace.Span directly.
func (p *Provider) StartEvaluation(ctx context.Context, ruleID string) (context.Context, func()) {
	spanCtx, span := p.tracer.Start(ctx, "rule.evaluate", trace.WithAttributes(
		attribute.String("correlator.rule_id", ruleID),
	))
	return spanCtx, func() { span.End() }
}

func (p *Provider) RecordEventProcessed(ctx context.Context) {
	p.eventsProcessed.Add(ctx, 1)
}

func (p *Provider) RecordRulesEvaluated(ctx context.Context, n int64) {
	p.rulesEvaluated.Add(ctx, n)
}

func (p *Provider) RecordCorrelationFound(ctx context.Context) {
	p.correlationsFound.Add(ctx, 1)
}

func (p *Provider) RecordAlertGenerated(ctx context.Context) {
	p.alertsGenerated.Add(ctx, 1)
}

func (p *Provider) RecordAlertDropped(ctx context.Context) {
	p.alertsDropped.Add(ctx, 1)
}

// Shutdown flushes and releases the underlying trace provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.traceProvider.Shutdown(ctx)
}
