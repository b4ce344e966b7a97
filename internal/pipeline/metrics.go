package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"binderflow/backend/internal/services"
)

const instrumentationName = "binderflow/backend/internal/pipeline"

type instruments struct {
	tracer        trace.Tracer
	stageRuns     metric.Int64Counter
	stageDuration metric.Float64Histogram
	pollAttempts  metric.Int64Counter
}

func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	in := instruments{tracer: otel.Tracer(instrumentationName)}
	// Instrument errors only report invalid names; the instruments are still usable.
	in.stageRuns, _ = meter.Int64Counter("binderflow.stage.runs",
		metric.WithDescription("Pipeline stage executions by outcome"))
	in.stageDuration, _ = meter.Float64Histogram("binderflow.stage.duration",
		metric.WithDescription("Pipeline stage wall time"), metric.WithUnit("s"))
	in.pollAttempts, _ = meter.Int64Counter("binderflow.poll.attempts",
		metric.WithDescription("Status polls issued to the prediction service"))
	return in
}

func (in instruments) recordStage(ctx context.Context, stage string, success bool, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", success),
	)
	in.stageRuns.Add(ctx, 1, attrs)
	in.stageDuration.Record(ctx, seconds, attrs)
}

// countingClient records every poll against the attempt counter.
type countingClient struct {
	services.PredictionClient
	attempts metric.Int64Counter
}

func (c countingClient) Poll(ctx context.Context, h services.JobHandle) (services.PollResult, error) {
	c.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("model", string(h.Model))))
	return c.PredictionClient.Poll(ctx, h)
}
