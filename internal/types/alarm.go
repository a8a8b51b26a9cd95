package types

import (
	"strings"
	"time"
)

// AlarmState is the evaluation state reported by the monitoring subsystem.
type AlarmState string

const (
	AlarmStateAlarm            AlarmState = "alarm"
	AlarmStateOK               AlarmState = "ok"
	AlarmStateInsufficientData AlarmState = "insufficient data"
)

// NormalizeAlarmState lowercases s and folds the underscore spelling of
// "insufficient data" used by older Ceilometer releases. Unknown values are
// returned lowercased rather than rejected.
func NormalizeAlarmState(s string) AlarmState {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "insufficient_data" {
		return AlarmStateInsufficientData
	}
	return AlarmState(s)
}

// Transition is the notification-worthy edge derived from a state change.
type Transition string

const (
	TransitionNone       Transition = "none"
	TransitionEnterAlarm Transition = "alarm"
	TransitionEnterOK    Transition = "ok"
)

// AlarmEvent is a single state-change notification received from the
// monitoring subsystem. It lives only for the duration of one handling call.
type AlarmEvent struct {
	AlarmID  string     `json:"alarm_id"`
	Current  AlarmState `json:"current"`
	Previous AlarmState `json:"previous"`
	Reason   string     `json:"reason"`
}

// QueryTerm is one {field, op, value} constraint of a threshold rule query.
type QueryTerm struct {
	Field string `json:"field"`
	Op    string `json:"op,omitempty"`
	Value string `json:"value"`
}

// ThresholdRule is the metric comparison an alarm evaluates.
type ThresholdRule struct {
	MeterName          string
	ComparisonOperator string
	Threshold          float64
	Period             time.Duration
	EvaluationPeriods  int
	Query              []QueryTerm
}

// AlarmDefinition is the subset of an alarm owned by the monitoring subsystem
// that the notifier reads. NotificationEmail is where the owner's address
// lives; clients are responsible for mapping it out of vendor fields.
type AlarmDefinition struct {
	AlarmID           string
	Name              string
	NotificationEmail string
	ThresholdRule     ThresholdRule
}

// ResourceIDField is the query field naming the monitored compute resource.
const ResourceIDField = "resource_id"

// EnrichedNotification is the fully resolved payload handed to the composer.
// It is built once per event and never modified afterwards.
type EnrichedNotification struct {
	AlarmID           string
	Transition        Transition
	Email             string
	InstanceName      *string
	ResourceType      string
	ComparisonLabel   string
	Threshold         float64
	Period            time.Duration
	EvaluationPeriods int
	Reason            string
}

// InstanceNameOrEmpty returns the resolved instance name, or "" when the
// resource could not be identified.
func (n *EnrichedNotification) InstanceNameOrEmpty() string {
	if n.InstanceName == nil {
		return ""
	}
	return *n.InstanceName
}
