package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "benchforge"

// StartClassificationSpan starts a span covering one full before/after
// classification.
func StartClassificationSpan(ctx context.Context, sandboxID, revision string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "classification",
		trace.WithAttributes(
			attribute.String("sandbox.id", sandboxID),
			attribute.String("revision", revision),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage (materialize, run,
// patch) within a classification.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage",
		trace.WithAttributes(
			attribute.String("stage.name", stage),
		),
	)
}

// StartSessionSpan starts a span for one dataset session build.
func StartSessionSpan(ctx context.Context, sessionID string, prNumber int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("session.pr", prNumber),
		),
	)
}
