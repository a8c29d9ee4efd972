// Package telemetry holds the OpenTelemetry instruments and spans used by
// review runs. Instruments come from the global providers, so they are
// no-ops unless the embedding program installs an SDK.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "panel"

// Metrics holds all panel metric instruments.
type Metrics struct {
	RunsStarted        metric.Int64Counter
	RunsCompleted      metric.Int64Counter
	RunsFailed         metric.Int64Counter
	SpecialistOutcomes metric.Int64Counter
	RunDuration        metric.Float64Histogram
	PublishedReviews   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("panel.runs.started",
		metric.WithDescription("Number of review runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("panel.runs.completed",
		metric.WithDescription("Number of review runs that produced a review"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("panel.runs.failed",
		metric.WithDescription("Number of review runs that produced no review"))
	if err != nil {
		return nil, err
	}

	m.SpecialistOutcomes, err = meter.Int64Counter("panel.specialist.outcomes",
		metric.WithDescription("Specialist calls by category and outcome"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("panel.run.duration_seconds",
		metric.WithDescription("Review run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.PublishedReviews, err = meter.Int64Counter("panel.reviews.published",
		metric.WithDescription("Reviews posted to GitHub by outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSpecialist counts one specialist outcome ("ok", "failed", "skipped",
// "cancelled"). A nil receiver records nothing.
func (m *Metrics) RecordSpecialist(ctx context.Context, category, outcome string) {
	if m == nil {
		return
	}
	m.SpecialistOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("specialist.category", category),
		attribute.String("specialist.outcome", outcome),
	))
}

// RecordRun counts a finished run and its duration.
func (m *Metrics) RecordRun(ctx context.Context, ok, degraded bool, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("run.degraded", degraded))
	if ok {
		m.RunsCompleted.Add(ctx, 1, attrs)
	} else {
		m.RunsFailed.Add(ctx, 1)
	}
	m.RunDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("run.ok", ok)))
}

// RecordStart counts a started run.
func (m *Metrics) RecordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.RunsStarted.Add(ctx, 1)
}

// RecordPublish counts a publish attempt.
func (m *Metrics) RecordPublish(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.PublishedReviews.Add(ctx, 1, metric.WithAttributes(attribute.Bool("publish.ok", ok)))
}
