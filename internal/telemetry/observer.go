// Package telemetry records tool invocations as OpenTelemetry spans and
// metrics.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
)

// Metric names.
const (
	MetricInvocations = "geo.tool.invocations"
	MetricFailures    = "geo.tool.failures"
	MetricLatency     = "geo.tool.latency"
)

// ToolObserver implements the toolbox observer hook.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates an observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		MetricInvocations,
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		MetricFailures,
		metric.WithDescription("Number of tool invocations that returned an error"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		MetricLatency,
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &ToolObserver{tracer: tracer, invocations: invocations, failures: failures, latency: latency}, nil
}

// ToolStarted opens a span for the call and returns the func that closes it.
func (o *ToolObserver) ToolStarted(ctx context.Context, invocationID, tool string) (context.Context, func(error)) {
	if o == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	nameAttr := attribute.String("tool_name", tool)
	if o.tracer != nil {
		ctx, _ = o.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
			nameAttr,
			attribute.String("invocation_id", invocationID),
		))
	}
	span := trace.SpanFromContext(ctx)

	return ctx, func(err error) {
		attrs := []attribute.KeyValue{nameAttr, attribute.Bool("success", err == nil)}
		if err != nil {
			kind := ErrorKind(err)
			attrs = append(attrs, attribute.String("error_kind", kind))
			o.failures.Add(context.Background(), 1, metric.WithAttributes(nameAttr, attribute.String("error_kind", kind)))
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		options := metric.WithAttributes(attrs...)
		o.invocations.Add(context.Background(), 1, options)
		o.latency.Record(context.Background(), time.Since(start).Seconds(), options)
		span.End()
	}
}

// ErrorKind classifies a tool error for metric attributes.
func ErrorKind(err error) string {
	var (
		validation *toolerr.ValidationError
		cfg        *toolerr.ConfigError
		upstream   *toolerr.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &cfg):
		return "config"
	case errors.As(err, &upstream):
		return "upstream"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}
