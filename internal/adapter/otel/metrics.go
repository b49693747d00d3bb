package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "benchforge"

// Metrics holds all BenchForge metric instruments.
type Metrics struct {
	ClassificationsStarted  metric.Int64Counter
	ClassificationsDone     metric.Int64Counter
	ClassificationsAborted  metric.Int64Counter
	TestRunTimeouts         metric.Int64Counter
	ClassificationDuration  metric.Float64Histogram
	FailToPassCount         metric.Int64Histogram
	PassToPassCount         metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ClassificationsStarted, err = meter.Int64Counter("benchforge.classifications.started",
		metric.WithDescription("Number of classifications started"))
	if err != nil {
		return nil, err
	}

	m.ClassificationsDone, err = meter.Int64Counter("benchforge.classifications.completed",
		metric.WithDescription("Number of classifications completed"))
	if err != nil {
		return nil, err
	}

	m.ClassificationsAborted, err = meter.Int64Counter("benchforge.classifications.aborted",
		metric.WithDescription("Number of classifications aborted at a gate"))
	if err != nil {
		return nil, err
	}

	m.TestRunTimeouts, err = meter.Int64Counter("benchforge.testruns.timeouts",
		metric.WithDescription("Number of test invocations killed by the wall-clock bound"))
	if err != nil {
		return nil, err
	}

	m.ClassificationDuration, err = meter.Float64Histogram("benchforge.classification.duration_seconds",
		metric.WithDescription("Classification duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.FailToPassCount, err = meter.Int64Histogram("benchforge.classification.fail_to_pass",
		metric.WithDescription("FAIL_TO_PASS set size per classification"))
	if err != nil {
		return nil, err
	}

	m.PassToPassCount, err = meter.Int64Histogram("benchforge.classification.pass_to_pass",
		metric.WithDescription("PASS_TO_PASS set size per classification"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
