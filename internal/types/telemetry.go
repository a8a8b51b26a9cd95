package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricDispatchAttempt       = "DispatchAttempt"
	MetricDispatchLatency       = "DispatchLatency"
	MetricAlarmSkipped          = "AlarmSkipped"
	MetricDuplicateResourceID   = "DuplicateResourceID"
	MetricResourceLookupFailure = "ResourceLookupFailure"
	MetricAlarmFailed           = "AlarmFailed"

	// Dimension Keys
	DimTransition = "Transition"
	DimResult     = "Result"
	DimReason     = "Reason"
	DimStage      = "Stage"

	// Default Metric Namespace
	MetricNamespace = "SafirNotifier"
)
