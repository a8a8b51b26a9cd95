// Package alarm turns monitoring state-change events into notifications. It
// owns the edge-trigger decision, enrichment of the raw alarm with resource
// and rule context, and the orchestration of compose and dispatch.
package alarm

import "safirnotify/internal/types"

// Evaluate decides whether a state change is worth notifying about.
//
// A notification fires only on entering alarm or entering ok; a repeated
// state and any transition into another state (e.g. insufficient data)
// yield TransitionNone.
func Evaluate(current, previous types.AlarmState) types.Transition {
	switch {
	case current == types.AlarmStateAlarm && previous != types.AlarmStateAlarm:
		return types.TransitionEnterAlarm
	case current == types.AlarmStateOK && previous != types.AlarmStateOK:
		return types.TransitionEnterOK
	default:
		return types.TransitionNone
	}
}
