package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/events"
)

// ObserveApprovals 把审批结果写入 OTel 指标，经 OTLP 推送到采集端。
// meter 通常为 otel.Meter("agentgate")；返回订阅 ID。
func ObserveApprovals(bus events.Bus, meter metric.Meter) (string, error) {
	outcomes, err := meter.Int64Counter("agentgate.approval.outcomes",
		metric.WithDescription("Resolved approval requests by type and status"),
	)
	if err != nil {
		return "", fmt.Errorf("create outcome counter: %w", err)
	}
	wait, err := meter.Float64Histogram("agentgate.approval.wait",
		metric.WithDescription("Time a request waited for a human"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return "", fmt.Errorf("create wait histogram: %w", err)
	}

	record := func(typ approval.Type, status approval.Status, seconds float64) {
		attrs := metric.WithAttributes(
			attribute.String("approval.type", string(typ)),
			attribute.String("approval.status", string(status)),
		)
		ctx := context.Background()
		outcomes.Add(ctx, 1, attrs)
		wait.Record(ctx, seconds, attrs)
	}

	return bus.Subscribe(events.AllEvents, func(ev events.Event) {
		switch e := ev.(type) {
		case *approval.RespondedEvent:
			record(e.ApprovalType, e.Status, e.WaitDuration.Seconds())
		case *approval.ClosedEvent:
			record(e.ApprovalType, e.Status, e.WaitDuration.Seconds())
		}
	}), nil
}
