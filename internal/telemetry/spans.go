package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "panel"

// StartRunSpan starts a span for a review run.
func StartRunSpan(ctx context.Context, runID string, specialists int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.specialists", specialists),
		),
	)
}

// StartSpecialistSpan starts a span for one specialist call within a run.
func StartSpecialistSpan(ctx context.Context, category string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review.specialist",
		trace.WithAttributes(attribute.String("specialist.category", category)),
	)
}

// StartPublishSpan starts a span for posting a review.
func StartPublishSpan(ctx context.Context, repo string, number int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review.publish",
		trace.WithAttributes(
			attribute.String("github.repository", repo),
			attribute.Int("github.pr", number),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// HTTPMiddleware returns a chi-compatible middleware that creates spans for
// HTTP requests.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName)
	}
}
