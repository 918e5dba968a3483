package observability

import (
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments used by the relogs client and agent.
// Instruments are created once at startup and shared by the client, the
// transports and the local ingest gateway.
type Metrics struct {
	// HTTP metrics (local ingest gateway)
	HTTPRequestDuration otelmetric.Float64Histogram
	HTTPRequestTotal    otelmetric.Int64Counter
	HTTPRequestErrors   otelmetric.Int64Counter

	// Buffer metrics
	EventsTracked  otelmetric.Int64Counter
	EventsRejected otelmetric.Int64Counter

	// Flush / upload metrics
	Flushes         otelmetric.Int64Counter
	BatchSize       otelmetric.Int64Histogram
	UploadsInFlight otelmetric.Int64UpDownCounter
	UploadLatency   otelmetric.Float64Histogram
	UploadFailures  otelmetric.Int64Counter

	// Drain metrics
	DrainDuration otelmetric.Float64Histogram
	DrainTimeouts otelmetric.Int64Counter
}

// NewMetrics creates all metric instruments from the given Meter.
// Each instrument is created with a descriptive name, unit, and description
// following OpenTelemetry semantic conventions.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestTotal, err = meter.Int64Counter(
		"http.request.total",
		otelmetric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestErrors, err = meter.Int64Counter(
		"http.request.errors",
		otelmetric.WithDescription("HTTP request errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	// Buffer metrics
	m.EventsTracked, err = meter.Int64Counter(
		"relogs.events.tracked",
		otelmetric.WithDescription("Events appended to the buffer"),
	)
	if err != nil {
		return nil, err
	}

	m.EventsRejected, err = meter.Int64Counter(
		"relogs.events.rejected",
		otelmetric.WithDescription("Events dropped because the client had ended"),
	)
	if err != nil {
		return nil, err
	}

	// Flush / upload metrics
	m.Flushes, err = meter.Int64Counter(
		"relogs.flushes",
		otelmetric.WithDescription("Non-empty buffer flushes"),
	)
	if err != nil {
		return nil, err
	}

	m.BatchSize, err = meter.Int64Histogram(
		"relogs.batch.size",
		otelmetric.WithDescription("Events per table batch"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadsInFlight, err = meter.Int64UpDownCounter(
		"relogs.uploads.inflight",
		otelmetric.WithDescription("Batch uploads currently in progress"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadLatency, err = meter.Float64Histogram(
		"relogs.upload.latency",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Batch upload latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadFailures, err = meter.Int64Counter(
		"relogs.upload.failures",
		otelmetric.WithDescription("Batch uploads that failed and were dropped"),
	)
	if err != nil {
		return nil, err
	}

	// Drain metrics
	m.DrainDuration, err = meter.Float64Histogram(
		"relogs.drain.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Shutdown drain duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.DrainTimeouts, err = meter.Int64Counter(
		"relogs.drain.timeouts",
		otelmetric.WithDescription("Drains that gave up before reaching quiescence"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
