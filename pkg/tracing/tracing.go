// Package tracing OpenTelemetry 初始化，导出到 OTLP/HTTP
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/d60-Lab/ideagraph/config"
)

// Init 未配置 endpoint 时不启用，返回空的 shutdown
func Init(ctx context.Context, cfg config.TracingConfig, env string) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))),
		tracesdk.WithResource(resource.NewWithAttributes("",
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", env),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
