package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"safirnotify/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchNotificationMetrics implements NotificationMetrics by emitting
// metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - DispatchAttempt: Dims {Transition, Result}
//   - DispatchLatency: Dims {Transition}
//   - AlarmSkipped: Dims {Reason}
//   - AlarmFailed: Dims {Stage}
//   - DuplicateResourceID, ResourceLookupFailure: no dims
type CloudWatchNotificationMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchNotificationMetrics creates a CloudWatchNotificationMetrics that
// publishes to namespace. An empty namespace uses types.MetricNamespace.
func NewCloudWatchNotificationMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchNotificationMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchNotificationMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDispatch emits a DispatchAttempt count with Transition and Result dimensions.
func (m *CloudWatchNotificationMetrics) RecordDispatch(ctx context.Context, transition types.Transition, result MetricResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimTransition, string(transition)),
			dimension(types.DimResult, string(result)),
		},
	})
}

// RecordLatency emits the end-to-end handling latency in milliseconds.
func (m *CloudWatchNotificationMetrics) RecordLatency(ctx context.Context, transition types.Transition, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDispatchLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimTransition, string(transition)),
		},
	})
}

// RecordSkipped counts an event that produced no notification.
func (m *CloudWatchNotificationMetrics) RecordSkipped(ctx context.Context, reason string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAlarmSkipped),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimReason, reason),
		},
	})
}

// RecordDuplicateResourceID counts alarms whose query names more than one resource.
func (m *CloudWatchNotificationMetrics) RecordDuplicateResourceID(ctx context.Context) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDuplicateResourceID),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordResourceLookupFailure counts best-effort instance name lookups that failed.
func (m *CloudWatchNotificationMetrics) RecordResourceLookupFailure(ctx context.Context) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricResourceLookupFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordAlarmFailure emits an AlarmFailed count with a Stage dimension.
func (m *CloudWatchNotificationMetrics) RecordAlarmFailure(ctx context.Context, stage string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAlarmFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimStage, stage),
		},
	})
}

func (m *CloudWatchNotificationMetrics) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record metric",
			"metric", aws.ToString(datum.MetricName),
			"error", err.Error(),
		)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{
		Name:  aws.String(name),
		Value: aws.String(value),
	}
}

// Compile-time assertion that CloudWatchNotificationMetrics implements NotificationMetrics.
var _ NotificationMetrics = (*CloudWatchNotificationMetrics)(nil)
