package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestCountersRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(provider.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.FetchIssued(ctx, "catalog", false)
	m.FetchIssued(ctx, "catalog", true)
	m.FetchFailed(ctx, "catalog", "server_error")
	m.StaleDiscarded(ctx, "reviews")
	m.OfflineShortCircuit(ctx, "catalog")
	m.MutationSettled(ctx, "vote_helpful", "rolled_back")
	m.PersistenceFailed(ctx, "wishlist/items")
	m.ConnectivityChanged(ctx, true)

	totals := collect(t, reader)
	assert.Equal(t, int64(2), totals["catalog_fetch_requests"])
	assert.Equal(t, int64(1), totals["catalog_fetch_failures"])
	assert.Equal(t, int64(1), totals["catalog_fetch_stale_discards"])
	assert.Equal(t, int64(1), totals["catalog_fetch_offline_short_circuits"])
	assert.Equal(t, int64(1), totals["catalog_mutations"])
	assert.Equal(t, int64(1), totals["catalog_persistence_failures"])
	assert.Equal(t, int64(1), totals["catalog_connectivity_transitions"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.FetchIssued(ctx, "catalog", false)
		m.MutationSettled(ctx, "x", "y")
		m.ConnectivityChanged(ctx, false)
	})
}

func TestPrometheusHandlerExposesCounters(t *testing.T) {
	exp, err := NewPrometheus(false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

	m, err := exp.Metrics()
	require.NoError(t, err)
	m.FetchIssued(context.Background(), "catalog", false)

	srv := httptest.NewServer(exp.Handler())
	t.Cleanup(srv.Close)
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catalog_fetch_requests")
}
