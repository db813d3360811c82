// Package telemetry records engine counters through the OpenTelemetry
// metric API. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName scopes every instrument created by this package.
const MeterName = "github.com/yigiterenyilmaz/intern-project-product-review"

// Metrics holds the engine's instruments.
type Metrics struct {
	fetchRequests        metric.Int64Counter
	fetchFailures        metric.Int64Counter
	staleDiscards        metric.Int64Counter
	offlineShortCircuits metric.Int64Counter
	mutations            metric.Int64Counter
	persistenceFailures  metric.Int64Counter
	connectivityChanges  metric.Int64Counter
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.fetchRequests, "catalog_fetch_requests", "Page requests sent to the backend"},
		{&m.fetchFailures, "catalog_fetch_failures", "Page requests that failed"},
		{&m.staleDiscards, "catalog_fetch_stale_discards", "Responses or appends discarded as stale"},
		{&m.offlineShortCircuits, "catalog_fetch_offline_short_circuits", "Requests answered locally because the device was offline"},
		{&m.mutations, "catalog_mutations", "Mutation intents by kind and final status"},
		{&m.persistenceFailures, "catalog_persistence_failures", "Key-value writes that failed"},
		{&m.connectivityChanges, "catalog_connectivity_transitions", "Online/offline transitions"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// Default creates the instruments on the global meter provider.
func Default() (*Metrics, error) {
	return New(otel.Meter(MeterName))
}

// FetchIssued counts a page request for list.
func (m *Metrics) FetchIssued(ctx context.Context, list string, appendPage bool) {
	if m == nil {
		return
	}
	m.fetchRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("list", list),
		attribute.Bool("append", appendPage),
	))
}

// FetchFailed counts a failed page request.
func (m *Metrics) FetchFailed(ctx context.Context, list, kind string) {
	if m == nil {
		return
	}
	m.fetchFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("list", list),
		attribute.String("kind", kind),
	))
}

// StaleDiscarded counts a dropped response or rejected append.
func (m *Metrics) StaleDiscarded(ctx context.Context, list string) {
	if m == nil {
		return
	}
	m.staleDiscards.Add(ctx, 1, metric.WithAttributes(attribute.String("list", list)))
}

// OfflineShortCircuit counts a request answered without network I/O.
func (m *Metrics) OfflineShortCircuit(ctx context.Context, list string) {
	if m == nil {
		return
	}
	m.offlineShortCircuits.Add(ctx, 1, metric.WithAttributes(attribute.String("list", list)))
}

// MutationSettled counts an intent reaching a terminal status.
func (m *Metrics) MutationSettled(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// PersistenceFailed counts a failed key-value write.
func (m *Metrics) PersistenceFailed(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.persistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// ConnectivityChanged counts a transition to online or offline.
func (m *Metrics) ConnectivityChanged(ctx context.Context, offline bool) {
	if m == nil {
		return
	}
	state := "online"
	if offline {
		state = "offline"
	}
	m.connectivityChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
