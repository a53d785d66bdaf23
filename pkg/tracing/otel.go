// Copyright 2026 fanjia1024
// OpenTelemetry span helpers

// Package tracing Agent 运行与工具调用的链路 span
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan 开始一次 Agent/Workflow 运行 span
func StartRunSpan(ctx context.Context, mode string, sessionID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("geoagent")
	ctx, span := tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("run.mode", mode),
			attribute.String("session.id", sessionID),
		),
	)
	return ctx, span
}

// StartToolSpan 开始一次工具调用 span
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("geoagent")
	ctx, span := tracer.Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
		),
	)
	return ctx, span
}
