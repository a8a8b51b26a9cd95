package alarm

import (
	"context"
	"fmt"

	"safirnotify/internal/notifications/core"
	"safirnotify/internal/notifications/email"
	"safirnotify/internal/types"
)

// Outcome is the terminal state of one handled alarm event.
type Outcome string

const (
	OutcomeDispatched Outcome = "dispatched"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Dispatcher delivers a rendered message. Implemented by *email.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *email.RenderedEmail, destination string) error
}

// Handler wires evaluation, enrichment, composition and dispatch into the
// single per-event operation. It holds no per-event state and is safe for
// concurrent use.
type Handler struct {
	enricher   *Enricher
	composer   email.Composer
	dispatcher Dispatcher
	panelURL   string
	metrics    core.NotificationMetrics
	logger     types.Logger
	clock      types.Clock
}

// HandlerConfig holds the dependencies needed to create a Handler.
type HandlerConfig struct {
	Enricher   *Enricher
	Composer   email.Composer
	Dispatcher Dispatcher
	// PanelURL is linked from the rich body. May be empty.
	PanelURL string
	Metrics  core.NotificationMetrics
	Logger   types.Logger
	Clock    types.Clock
}

// NewHandler creates a Handler. Metrics, Logger and Clock are optional.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		enricher:   cfg.Enricher,
		composer:   cfg.Composer,
		dispatcher: cfg.Dispatcher,
		panelURL:   cfg.PanelURL,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
	}
	if h.metrics == nil {
		h.metrics = core.NopMetrics{}
	}
	if h.logger == nil {
		h.logger = types.NopLogger{}
	}
	if h.clock == nil {
		h.clock = types.RealClock{}
	}
	return h
}

// HandleAlarmEvent is the entry point for one state-change notification from
// the monitoring subsystem. States are normalized before evaluation.
func (h *Handler) HandleAlarmEvent(ctx context.Context, alarmID, current, previous, reason string) (Outcome, error) {
	return h.Handle(ctx, types.AlarmEvent{
		AlarmID:  alarmID,
		Current:  types.NormalizeAlarmState(current),
		Previous: types.NormalizeAlarmState(previous),
		Reason:   reason,
	})
}

// Handle runs ev through evaluate, enrich, compose and dispatch in a single
// pass. The returned error is non-nil iff the outcome is OutcomeFailed; it
// wraps ErrAlarmLookup or email.ErrDispatch with the underlying cause.
// ctx bounds every collaborator call.
func (h *Handler) Handle(ctx context.Context, ev types.AlarmEvent) (Outcome, error) {
	start := h.clock.Now()
	transition := Evaluate(ev.Current, ev.Previous)

	logger := types.LoggerFromContext(ctx, h.logger).With(
		"alarm_id", ev.AlarmID,
		"trace_id", types.GetTraceID(ctx),
	)
	ctx = types.WithLogger(ctx, logger)

	logger.Info("alarm event received",
		"current", string(ev.Current),
		"previous", string(ev.Previous),
		"transition", string(transition),
	)

	enrichment, err := h.enricher.Enrich(ctx, ev)
	if err != nil {
		return h.fail(ctx, logger, "enrich", err)
	}
	if enrichment.Skip != SkipNone {
		h.metrics.RecordSkipped(ctx, string(enrichment.Skip))
		logger.Info("alarm event skipped", "reason", string(enrichment.Skip))
		return OutcomeSkipped, nil
	}

	n := enrichment.Notification
	msg, err := h.composer.Compose(n, h.panelURL)
	if err != nil {
		return h.fail(ctx, logger, "compose", fmt.Errorf("compose notification: %w", err))
	}

	if err := h.dispatcher.Dispatch(ctx, msg, n.Email); err != nil {
		return h.fail(ctx, logger, "dispatch", err)
	}

	h.metrics.RecordLatency(ctx, transition, h.clock.Now().Sub(start))
	logger.Info("alarm notification dispatched",
		"transition", string(transition),
		"subject", msg.Subject,
	)
	return OutcomeDispatched, nil
}

// fail records the failed stage. The dispatch attempt itself, if any, is
// counted by the Dispatcher.
func (h *Handler) fail(ctx context.Context, logger types.Logger, stage string, err error) (Outcome, error) {
	h.metrics.RecordAlarmFailure(ctx, stage)
	logger.Error("alarm event failed",
		"stage", stage,
		"error", err.Error(),
	)
	return OutcomeFailed, err
}
