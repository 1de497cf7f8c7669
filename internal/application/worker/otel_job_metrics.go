package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names following OpenTelemetry semantic conventions.
const (
	jobsProcessedCounterName   = "image_jobs_processed_total"
	jobRetriesCounterName      = "image_job_retries_total"
	jobDurationHistogramName   = "image_job_duration_seconds"
	meterName                  = "ruleindex/worker"
	attrResult                 = "result"
	attrRetryAttempt           = "retry_attempt"
)

// JobMetrics records pipeline metrics for processed image jobs.
type JobMetrics struct {
	jobsProcessed metric.Int64Counter
	jobRetries    metric.Int64Counter
	jobDuration   metric.Float64Histogram
}

// NewJobMetrics creates job metrics instruments on the global meter provider.
func NewJobMetrics() (*JobMetrics, error) {
	meter := otel.Meter(meterName)

	jobsProcessed, err := meter.Int64Counter(
		jobsProcessedCounterName,
		metric.WithDescription("Total number of image processing jobs handled, by result"),
	)
	if err != nil {
		return nil, err
	}

	jobRetries, err := meter.Int64Counter(
		jobRetriesCounterName,
		metric.WithDescription("Total number of self-scheduled job retries"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		jobDurationHistogramName,
		metric.WithDescription("End-to-end duration of one processing attempt in seconds"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	return &JobMetrics{
		jobsProcessed: jobsProcessed,
		jobRetries:    jobRetries,
		jobDuration:   jobDuration,
	}, nil
}

// RecordJob records one completed processing attempt.
func (m *JobMetrics) RecordJob(ctx context.Context, result string, retryAttempt int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrResult, result),
		attribute.Int(attrRetryAttempt, retryAttempt),
	)
	m.jobsProcessed.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records one self-scheduled retry.
func (m *JobMetrics) RecordRetry(ctx context.Context) {
	m.jobRetries.Add(ctx, 1)
}
