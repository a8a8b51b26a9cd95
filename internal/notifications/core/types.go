// Package core provides the shared notification infrastructure used by the
// alarm webhook and the alarm worker: delivery metrics and the SQS publisher
// that hands received events to the worker.
package core

import (
	"context"
	"time"

	"safirnotify/internal/types"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricSkipped MetricResult = "skipped"
)

// NotificationMetrics abstracts CloudWatch operations for the notifier.
// Implementations must not fail the caller; errors are logged and dropped.
type NotificationMetrics interface {
	RecordDispatch(ctx context.Context, transition types.Transition, result MetricResult)
	RecordLatency(ctx context.Context, transition types.Transition, duration time.Duration)
	RecordSkipped(ctx context.Context, reason string)
	RecordDuplicateResourceID(ctx context.Context)
	RecordResourceLookupFailure(ctx context.Context)
	// RecordAlarmFailure counts an event that ended FAILED, by the stage that
	// failed. Dispatch attempts are counted separately by RecordDispatch.
	RecordAlarmFailure(ctx context.Context, stage string)
}

// NopMetrics discards every metric. Used when metrics are disabled.
type NopMetrics struct{}

func (NopMetrics) RecordDispatch(context.Context, types.Transition, MetricResult) {}
func (NopMetrics) RecordLatency(context.Context, types.Transition, time.Duration) {}
func (NopMetrics) RecordSkipped(context.Context, string)                          {}
func (NopMetrics) RecordDuplicateResourceID(context.Context)                      {}
func (NopMetrics) RecordResourceLookupFailure(context.Context)                    {}
func (NopMetrics) RecordAlarmFailure(context.Context, string)                     {}

var _ NotificationMetrics = NopMetrics{}
