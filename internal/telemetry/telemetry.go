// Package telemetry wires a process-wide OTel tracer and meter provider for
// the storage and engine packages' otel.Tracer/otel.Meter calls, which
// mirror the teacher's doltTracer/doltMetrics pattern (storage/dolt's
// package-level instruments registered against whatever global provider is
// configured). The teacher itself never wires a concrete provider — its
// deployment environment does that — so this package supplies the stdout
// exporter wiring the rest of the pack's OTel dependencies were pulled in
// for.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Providers holds the SDK providers Init installed globally, so Shutdown
// can flush and release them.
type Providers struct {
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

// Init installs a stdout-exporting TracerProvider and MeterProvider as the
// global OTel providers. Passing a non-nil w sends spans/metrics there
// (e.g. a log file); nil discards them, which is the right default for
// cmd/revctl's one-shot invocations.
func Init(w io.Writer) (*Providers, error) {
	if w == nil {
		w = io.Discard
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: init trace exporter: %w", err)
	}
	tp := trace.NewTracerProvider(trace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: init metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	otel.SetMeterProvider(mp)

	return &Providers{tracerProvider: tp, meterProvider: mp}, nil
}

// Shutdown flushes and releases the providers Init installed. Safe to call
// on a nil receiver (e.g. when Init was never called).
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
	}
	return nil
}
