// Package observability exports the relogs client and agent metrics to
// Prometheus through an OpenTelemetry meter provider.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Module owns the agent's meter provider and the instruments built on it.
// The client receives Meter() through relogs.Config; the gateway receives
// Metrics() and MetricsHandler().
type Module struct {
	provider *sdkmetric.MeterProvider
	meter    otelmetric.Meter
	metrics  *Metrics
}

// New registers a Prometheus-backed meter provider as the global provider
// and creates the relogs instruments under the serviceName scope.
func New(serviceName string) (*Module, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	metrics, err := NewMetrics(meter)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &Module{
		provider: provider,
		meter:    meter,
		metrics:  metrics,
	}, nil
}

// Shutdown stops the meter provider. Call it after the client has drained
// so the final drain duration is recorded.
func (m *Module) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func (m *Module) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Meter is the meter the relogs client builds its instruments from.
func (m *Module) Meter() otelmetric.Meter {
	return m.meter
}

// Metrics returns the shared instrument set.
func (m *Module) Metrics() *Metrics {
	return m.metrics
}
