package api

import (
	"net/http"

	"safirnotify/internal/types"
)

// AlarmNotification is the body the monitoring subsystem's HTTP alarm action
// posts. Only the fields the notifier reads are declared.
type AlarmNotification struct {
	AlarmID   string `json:"alarm_id" validate:"required"`
	AlarmName string `json:"alarm_name,omitempty"`
	Current   string `json:"current" validate:"required"`
	Previous  string `json:"previous"`
	Reason    string `json:"reason"`
	Severity  string `json:"severity,omitempty"`
}

// AlarmResponse reports what happened to an accepted notification.
type AlarmResponse struct {
	AlarmID string `json:"alarm_id"`
	Outcome string `json:"outcome"`
	TraceID string `json:"trace_id,omitempty"`
}

const outcomeQueued = "queued"

// HandleAlarm handles POST /v1/alarms.
//
// With a publisher configured the event is enqueued and 202 returned.
// Otherwise it is handled inline: dispatched and skipped answer 200, failed
// answers with the status of the underlying AppError.
func (s *Server) HandleAlarm(w http.ResponseWriter, r *http.Request) {
	var body AlarmNotification
	if err := DecodeJSON(w, r, &body); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "alarm_id and current are required", err))
		return
	}

	ctx := r.Context()
	traceID := types.GetTraceID(ctx)
	ev := types.AlarmEvent{
		AlarmID:  body.AlarmID,
		Current:  types.NormalizeAlarmState(body.Current),
		Previous: types.NormalizeAlarmState(body.Previous),
		Reason:   body.Reason,
	}
	if s.publisher != nil {
		msg := types.AlarmMessage{Event: ev, TraceID: traceID, ReceivedAt: s.clock.Now()}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("failed to enqueue alarm event",
				"alarm_id", ev.AlarmID,
				"trace_id", traceID,
				"error", err,
			)
			Error(w, r, types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to enqueue alarm event", err))
			return
		}
		JSON(w, http.StatusAccepted, AlarmResponse{AlarmID: ev.AlarmID, Outcome: outcomeQueued, TraceID: traceID})
		return
	}

	outcome, err := s.handler.Handle(ctx, ev)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, AlarmResponse{AlarmID: ev.AlarmID, Outcome: string(outcome), TraceID: traceID})
}
