package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_GroupsByRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/track/{table}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("table") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	handler := HTTPMetrics(metrics)(mux)

	for _, table := range []string{"logs", "audit", "bad"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/track/"+table, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("route")
				if route.AsString() != "POST /v1/track/{table}" {
					t.Errorf("%s: route = %q", md.Name, route.AsString())
				}
				totals[md.Name] += dp.Value
			}
		}
	}

	if totals["http.request.total"] != 3 {
		t.Errorf("http.request.total = %d, want 3", totals["http.request.total"])
	}
	if totals["http.request.errors"] != 1 {
		t.Errorf("http.request.errors = %d, want 1", totals["http.request.errors"])
	}
}
