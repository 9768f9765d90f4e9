package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusProvider_ExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()

	mp, err := NewMetricProvider(context.Background(),
		WithServiceName("swap-aggregator-test"),
		WithProviderConfig(NewPrometheusConfig()),
		WithRegisterer(reg),
	)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("routes_requests_total")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(NewPrometheusServer(0, reg).Handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "routes_requests_total") {
		t.Errorf("expected counter in scrape output, got:\n%s", body)
	}
}
