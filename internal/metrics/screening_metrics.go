package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("screening-metrics")

// ScreeningMetrics provides metrics collection for screening sessions
type ScreeningMetrics struct {
	answersAcceptedCounter      metric.Int64Counter
	answersRejectedCounter      metric.Int64Counter
	predictionsCounter          metric.Int64Counter
	inferenceFailuresCounter    metric.Int64Counter
	predictionDurationHistogram metric.Float64Histogram
	sessionsActiveGauge         metric.Int64UpDownCounter
}

// NewScreeningMetrics creates a new screening metrics collector
func NewScreeningMetrics() (*ScreeningMetrics, error) {
	answersAcceptedCounter, err := meter.Int64Counter(
		"screening.answers.accepted",
		metric.WithDescription("Total number of answers that passed validation"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		return nil, err
	}

	answersRejectedCounter, err := meter.Int64Counter(
		"screening.answers.rejected",
		metric.WithDescription("Total number of answers rejected by validation"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		return nil, err
	}

	predictionsCounter, err := meter.Int64Counter(
		"screening.predictions",
		metric.WithDescription("Total number of successful predictions"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	inferenceFailuresCounter, err := meter.Int64Counter(
		"screening.inference.failures",
		metric.WithDescription("Total number of predictions that failed inside the scaler or classifier"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	predictionDurationHistogram, err := meter.Float64Histogram(
		"screening.prediction.duration",
		metric.WithDescription("Duration of prediction requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sessionsActiveGauge, err := meter.Int64UpDownCounter(
		"screening.sessions.active",
		metric.WithDescription("Number of live screening sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &ScreeningMetrics{
		answersAcceptedCounter:      answersAcceptedCounter,
		answersRejectedCounter:      answersRejectedCounter,
		predictionsCounter:          predictionsCounter,
		inferenceFailuresCounter:    inferenceFailuresCounter,
		predictionDurationHistogram: predictionDurationHistogram,
		sessionsActiveGauge:         sessionsActiveGauge,
	}, nil
}

// RecordAnswerAccepted records a validated answer
func (sm *ScreeningMetrics) RecordAnswerAccepted(ctx context.Context, field string) {
	sm.answersAcceptedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("field", field),
		),
	)
}

// RecordAnswerRejected records an answer that failed validation
func (sm *ScreeningMetrics) RecordAnswerRejected(ctx context.Context, field, errorType string) {
	sm.answersRejectedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("field", field),
			attribute.String("error.type", errorType),
		),
	)
}

// RecordPrediction records a successful prediction
func (sm *ScreeningMetrics) RecordPrediction(ctx context.Context, label string, duration time.Duration) {
	sm.predictionsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("label", label),
		),
	)
	sm.predictionDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "completed"),
		),
	)
}

// RecordInferenceFailure records a prediction that failed inside the model
func (sm *ScreeningMetrics) RecordInferenceFailure(ctx context.Context, stage string, duration time.Duration) {
	sm.inferenceFailuresCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)
	sm.predictionDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "failed"),
		),
	)
}

// AddActiveSessions adjusts the live session gauge by n; n is negative when sessions end
func (sm *ScreeningMetrics) AddActiveSessions(ctx context.Context, n int) {
	sm.sessionsActiveGauge.Add(ctx, int64(n))
}
