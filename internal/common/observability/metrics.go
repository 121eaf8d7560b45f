package observability

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"company-intel/internal/common/config"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the process-wide meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
}

type Option func(*options)

type options struct {
	spanWriter io.Writer
	exporter   sdktrace.SpanExporter
	registerer promclient.Registerer
}

// WithRegisterer registers the metric exporter somewhere other than the
// default Prometheus registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSpanWriter redirects the stdout span exporter.
func WithSpanWriter(w io.Writer) Option {
	return func(o *options) { o.spanWriter = w }
}

// WithSpanExporter replaces the stdout exporter, e.g. with a tracetest recorder.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = e }
}

// New sets up metrics through the Prometheus exporter and, when tracing is
// enabled, spans through the stdout exporter. Spans go to stderr by default so
// CLI output on stdout stays clean.
func New(serviceName string, tracing config.TracingConfig, opts ...Option) (*Observability, error) {
	o := options{spanWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	obs := &Observability{}

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return nil, err
	}
	obs.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(obs.meterProvider)
	obs.meter = obs.meterProvider.Meter(serviceName)

	obs.jobCounter, _ = obs.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	obs.jobDuration, _ = obs.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		res = resource.Default()
	}

	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	switch {
	case o.exporter != nil:
		providerOpts = append(providerOpts, sdktrace.WithSyncer(o.exporter))
	case tracing.Enabled:
		stdoutOpts := []stdouttrace.Option{stdouttrace.WithWriter(o.spanWriter)}
		if tracing.PrettyPrint {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithPrettyPrint())
		}
		spanExporter, err := stdouttrace.New(stdoutOpts...)
		if err != nil {
			_ = obs.meterProvider.Shutdown(context.Background())
			return nil, err
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(spanExporter))
	}

	obs.tracerProvider = sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(obs.tracerProvider)
	obs.tracer = obs.tracerProvider.Tracer(serviceName)

	return obs, nil
}

// Tracer returns the tracer spans should be started from.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("company-intel")
	}
	return o.tracer
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o != nil && o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// Shutdown flushes pending spans and stops both providers.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if o.tracerProvider != nil {
		errs = append(errs, o.tracerProvider.Shutdown(ctx))
	}
	if o.meterProvider != nil {
		errs = append(errs, o.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
