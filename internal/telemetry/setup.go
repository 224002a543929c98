package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const instrumentationName = "github.com/geo-agent/geo-mcp-server"

// Providers owns the SDK providers for one process. Metrics are kept in a
// manual reader so the HTTP front-end can report them; traces are exported
// over OTLP/HTTP when an endpoint is configured.
type Providers struct {
	Observer *ToolObserver

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
}

// Setup builds providers for service. An empty endpoint disables export.
func Setup(ctx context.Context, service, version, endpoint string) (*Providers, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", service),
		attribute.String("service.version", version),
	)

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	observer, err := NewToolObserver(mp.Meter(instrumentationName), tp.Tracer(instrumentationName))
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return &Providers{Observer: observer, tracerProvider: tp, meterProvider: mp, reader: reader}, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(p.tracerProvider.Shutdown(ctx), p.meterProvider.Shutdown(ctx))
}

// ToolStat aggregates the counters for one tool.
type ToolStat struct {
	Tool        string `json:"tool"`
	Invocations int64  `json:"invocations"`
	Failures    int64  `json:"failures"`
}

// Stats collects the current per-tool counters, keyed by tool name.
func (p *Providers) Stats(ctx context.Context) (map[string]ToolStat, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	return StatsFrom(rm), nil
}

// StatsFrom folds collected metrics into per-tool counters.
func StatsFrom(rm metricdata.ResourceMetrics) map[string]ToolStat {
	stats := map[string]ToolStat{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, ok := dp.Attributes.Value("tool_name")
				if !ok {
					continue
				}
				name := v.AsString()
				st := stats[name]
				st.Tool = name
				switch m.Name {
				case MetricInvocations:
					st.Invocations += dp.Value
				case MetricFailures:
					st.Failures += dp.Value
				}
				stats[name] = st
			}
		}
	}
	return stats
}
