package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/events"
)

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestObserveApprovals(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bus := events.NewDispatcher(zap.NewNop())
	id, err := ObserveApprovals(bus, mp.Meter("agentgate"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	cfg := approval.DefaultEngineConfig()
	cfg.DefaultTimeout = 10 * time.Millisecond
	engine := approval.NewEngine(cfg, bus, zap.NewNop())
	ctx := context.Background()

	r1 := engine.Create(ctx, approval.TypeReview, "a", "", nil)
	require.True(t, engine.Deny(ctx, r1.ID, false))
	r2 := engine.Create(ctx, approval.TypeReview, "b", "", nil)
	engine.Wait(ctx, r2, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	m, ok := findMetric(rm, "agentgate.approval.outcomes")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)
	assert.Len(t, sum.DataPoints, 2)

	_, ok = findMetric(rm, "agentgate.approval.wait")
	assert.True(t, ok)
}
