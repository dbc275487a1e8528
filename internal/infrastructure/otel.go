package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts"
)

const (
	ServiceName    = "herding-dataset"
	ServiceVersion = contracts.Version
	MeterName      = "github.com/SLBlundell/Economics-Dissertation"
)

// TelemetryConfig holds OpenTelemetry configuration for one batch run
type TelemetryConfig struct {
	// EnableTracing writes one span per pipeline step to TracesFile
	EnableTracing bool
	TracesFile    string
	// MetricsTextfile is where Shutdown writes the Prometheus text format.
	// Empty disables the write; metrics are still recorded.
	MetricsTextfile string
}

// Telemetry holds the providers and the instruments the pipeline records to
type Telemetry struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *PipelineMetrics

	registry       *prometheus.Registry
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceFile      io.Closer
	textfile       string
	logger         *slog.Logger
}

// PipelineMetrics are the dataset builder's business metrics
type PipelineMetrics struct {
	FetchRequests metric.Int64Counter
	FetchRetries  metric.Int64Counter
	RowsWritten   metric.Int64Counter
	SkippedDates  metric.Int64Counter
	StepDuration  metric.Float64Histogram
}

// InitializeTelemetry sets up tracing and metrics for a run
func InitializeTelemetry(cfg TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		textfile: cfg.MetricsTextfile,
		logger:   logger,
	}

	if cfg.EnableTracing {
		if err := t.initializeTracing(cfg.TracesFile, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.Tracer = noop.NewTracerProvider().Tracer(MeterName)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.meterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	t.Metrics, err = CreatePipelineMetrics(t.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.String("metrics_textfile", cfg.MetricsTextfile))

	return t, nil
}

// initializeTracing sets up a batch span processor writing JSON spans to a file
func (t *Telemetry) initializeTracing(path string, res *resource.Resource) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create traces directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create traces file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.traceFile = f
	t.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.Tracer = t.tracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	return nil
}

// CreatePipelineMetrics creates the dataset builder's instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	fetchRequests, err := meter.Int64Counter(
		"herding_fetch_requests",
		metric.WithDescription("Upstream feed requests by source"),
	)
	if err != nil {
		return nil, err
	}

	fetchRetries, err := meter.Int64Counter(
		"herding_fetch_retries",
		metric.WithDescription("Retried upstream feed requests by source"),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Counter(
		"herding_rows_written",
		metric.WithDescription("Specification rows written to the output table"),
	)
	if err != nil {
		return nil, err
	}

	skippedDates, err := meter.Int64Counter(
		"herding_skipped_dates",
		metric.WithDescription("Trade dates dropped from the dataset by reason"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"herding_step_duration",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		FetchRequests: fetchRequests,
		FetchRetries:  fetchRetries,
		RowsWritten:   rowsWritten,
		SkippedDates:  skippedDates,
		StepDuration:  stepDuration,
	}, nil
}

// RecordFetch counts one upstream request; retry marks a repeated attempt
func (m *PipelineMetrics) RecordFetch(ctx context.Context, source string, retry bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.FetchRequests.Add(ctx, 1, attrs)
	if retry {
		m.FetchRetries.Add(ctx, 1, attrs)
	}
}

// Registry exposes the Prometheus registry the metrics are exported to
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Shutdown flushes spans, writes the metrics textfile and releases files
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close traces file: %w", err))
		}
	}

	if t.textfile != "" {
		if err := os.MkdirAll(filepath.Dir(t.textfile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("create metrics directory: %w", err))
		} else if err := prometheus.WriteToTextfile(t.textfile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		} else {
			t.logger.Info("Metrics written", slog.String("path", t.textfile))
		}
	}

	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
	}

	return errors.Join(errs...)
}
