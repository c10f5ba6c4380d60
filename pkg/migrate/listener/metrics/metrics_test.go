package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/metrics"
)

func lifecycle() []event.Event {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	base := event.Event{Object: "Account", Operation: model.OperationUpsert}
	started, progress, finished := base, base, base
	started.Status, started.Time = model.APIStatusOperationStarted, start
	progress.Status, progress.Time = model.APIStatusInProgress, start.Add(time.Second)
	finished.Status, finished.Time = model.APIStatusOperationFinished, start.Add(3*time.Second)
	finished.Processed, finished.Failed = 10, 2
	return []event.Event{started, progress, finished}
}

func TestPrometheusSink(t *testing.T) {
	sink := metrics.NewPrometheusSink("migrate")
	for _, e := range lifecycle() {
		sink.Emit(e)
	}

	reg := sink.Registry()
	expected := `
# HELP migrate_records_processed_total Records processed by finished operations.
# TYPE migrate_records_processed_total counter
migrate_records_processed_total{object="Account",operation="Upsert"} 10
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "migrate_records_processed_total"))

	expected = `
# HELP migrate_records_failed_total Records rejected by finished operations.
# TYPE migrate_records_failed_total counter
migrate_records_failed_total{object="Account",operation="Upsert"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "migrate_records_failed_total"))

	n, err := testutil.GatherAndCount(reg, "migrate_status_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = testutil.GatherAndCount(reg, "migrate_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusSink_WriteTextfile(t *testing.T) {
	sink := metrics.NewPrometheusSink("migrate")
	for _, e := range lifecycle() {
		sink.Emit(e)
	}
	path := filepath.Join(t.TempDir(), "migrate.prom")
	require.NoError(t, sink.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `migrate_records_processed_total{object="Account",operation="Upsert"} 10`)
}

func TestOTelSink(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sink, err := metrics.NewOTelSink(provider.Meter("test"))
	require.NoError(t, err)
	for _, e := range lifecycle() {
		sink.Emit(e)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, m.Name)
			for _, dp := range data.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), sums["migrate.status"])
	assert.Equal(t, int64(10), sums["migrate.records.processed"])
	assert.Equal(t, int64(2), sums["migrate.records.failed"])
}
