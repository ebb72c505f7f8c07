package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/agentgate/config"
)

// keepGlobals 测试结束后恢复全局 provider
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

// initEnabled 指向本地端点初始化；没有采集端时导出会失败，但初始化本身不连接
func initEnabled(t *testing.T, version string) *Providers {
	t.Helper()
	keepGlobals(t)
	p, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentgate-test",
		SampleRate:   0.5,
	}, version, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func TestInit_Disabled(t *testing.T) {
	keepGlobals(t)
	before := otel.GetMeterProvider()

	p, err := Init(context.Background(), config.TelemetryConfig{}, "", nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.tp)
	assert.Same(t, before, otel.GetMeterProvider())
	assert.NotNil(t, p.Meter("agentgate"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	p := initEnabled(t, "v1.2.3")

	assert.True(t, p.Enabled())
	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)
	assert.NotNil(t, p.Meter("agentgate"))
}

func TestProviders_ShutdownWithoutCollector(t *testing.T) {
	p := initEnabled(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// 没有采集端时 exporter 可能返回连接错误，只要求按时返回
	assert.NotPanics(t, func() { _ = p.Shutdown(ctx) })
}

func TestProviders_NilReceiver(t *testing.T) {
	var p *Providers
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("agentgate"))
}

func TestBuildVersion(t *testing.T) {
	// 测试二进制的主模块版本是 (devel)
	assert.Equal(t, "dev", buildVersion())
}

func TestSampleRate(t *testing.T) {
	tests := map[float64]float64{0: 1, -1: 1, 3: 1, 0.25: 0.25, 1: 1}
	for in, want := range tests {
		assert.Equal(t, want, sampleRate(in), "rate %v", in)
	}
}
