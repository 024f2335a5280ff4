package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"resumeforge/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Interval        time.Duration
	Prometheus      PrometheusConfig
	OTLP            config.OTLPConfig
}

// Metrics holds all custom metrics. A nil *Metrics records nothing.
type Metrics struct {
	BackendRequestCount    metric.Int64Counter
	BackendRequestDuration metric.Float64Histogram

	WorkflowTransitions metric.Int64Counter
	SessionEvents       metric.Int64Counter

	CertReloadCount metric.Int64Counter
	RateLimitHits   metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config         ObservabilityConfig
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig) (*ObservabilityManager, error) {
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig}, nil
	}

	om := &ObservabilityManager{config: obsConfig}

	res, err := om.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if err := om.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

// createResource creates the OpenTelemetry resource shared by traces and metrics
func (om *ObservabilityManager) createResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.config.ServiceInstance),
		),
	)
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.config.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(om.config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics(res *resource.Resource) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	options := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		options = append(options, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(options...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := NewMetrics(mp.Meter(om.config.ServiceName))
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.interval())))
	}

	if om.config.OTLP.Enabled {
		reader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		readers = append(readers, reader)
		shutdown := StartPrometheusServer(mux, om.config.Prometheus.Port)
		om.shutdownFuncs = append(om.shutdownFuncs, shutdown)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// NewMetrics creates every custom instrument on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.BackendRequestCount, err = meter.Int64Counter(
		"resumeforge_backend_requests_total",
		metric.WithDescription("Total number of backend API calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create backend request count metric: %w", err)
	}

	if m.BackendRequestDuration, err = meter.Float64Histogram(
		"resumeforge_backend_request_duration_seconds",
		metric.WithDescription("Latency of backend API calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create backend duration metric: %w", err)
	}

	if m.WorkflowTransitions, err = meter.Int64Counter(
		"resumeforge_workflow_transitions_total",
		metric.WithDescription("Optimization workflow step transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create workflow transition metric: %w", err)
	}

	if m.SessionEvents, err = meter.Int64Counter(
		"resumeforge_sessions_total",
		metric.WithDescription("Session lifecycle events"),
	); err != nil {
		return nil, fmt.Errorf("failed to create session events metric: %w", err)
	}

	if m.CertReloadCount, err = meter.Int64Counter(
		"resumeforge_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumeforge_rate_limited_total",
		metric.WithDescription("Total number of rate limited requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns the metrics instance, nil when metrics are disabled
func (om *ObservabilityManager) GetMetrics() *Metrics {
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TrackBackendCall wraps one backend request in a span and records count and latency.
// fn returns the HTTP status it observed, or 0 when no response arrived.
func (m *Metrics) TrackBackendCall(ctx context.Context, operation string, fn func(context.Context) (int, error)) error {
	tracer := otel.Tracer("resumeforge.backend")
	ctx, span := tracer.Start(ctx, "backend."+operation)
	defer span.End()

	start := time.Now()
	status, err := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("status_class", statusClass(status)),
	}
	span.SetAttributes(append(attrs, attribute.Int("http.status_code", status))...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if m == nil || m.BackendRequestCount == nil {
		return err
	}
	m.BackendRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.BackendRequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	return err
}

// statusClass buckets an HTTP status as 2xx, 4xx, 5xx, or "error" when no response arrived.
func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// RecordWorkflowTransition counts one optimization workflow step change
func (m *Metrics) RecordWorkflowTransition(ctx context.Context, from, to string) {
	if m == nil || m.WorkflowTransitions == nil {
		return
	}
	m.WorkflowTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordSessionEvent counts login, signup and logout events
func (m *Metrics) RecordSessionEvent(ctx context.Context, event string) {
	if m == nil || m.SessionEvents == nil {
		return
	}
	m.SessionEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

// RecordCertReload counts a certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil || m.CertReloadCount == nil {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// No-op exporter for when neither console nor OTLP output is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.config.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.config.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.interval())), nil
}

func (om *ObservabilityManager) interval() time.Duration {
	if om.config.Interval > 0 {
		return om.config.Interval
	}
	return 15 * time.Second
}
