package email

import (
	"context"
	"fmt"

	"safirnotify/internal/external"
	"safirnotify/internal/notifications/core"
	"safirnotify/internal/types"
)

// Dispatcher validates the destination and hands rendered messages to the
// mail transport. It does not retry.
type Dispatcher struct {
	provider external.EmailProvider
	sender   types.SenderIdentity
	metrics  core.NotificationMetrics
	logger   types.Logger
}

// DispatcherConfig holds the dependencies needed to create a Dispatcher.
type DispatcherConfig struct {
	Provider external.EmailProvider
	// Sender is the From identity. For SMTP this is the login address.
	Sender types.SenderIdentity
	// Metrics receives one DispatchAttempt per call. Optional.
	Metrics core.NotificationMetrics
	Logger  types.Logger
}

// NewDispatcher creates a new Dispatcher with the given dependencies.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Dispatcher{
		provider: cfg.Provider,
		sender:   cfg.Sender,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch sends msg to destination.
//
//  1. Re-validate the destination (the address is never altered).
//  2. Send pre-rendered content via the provider, bounded by ctx.
//  3. On failure return the error wrapped with ErrDispatch.
//  4. On success log subject and redacted destination.
//
// Every call with a message records one DispatchAttempt metric.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *RenderedEmail, destination string) error {
	logger := types.LoggerFromContext(ctx, d.logger)

	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrDispatch)
	}
	if err := types.ValidateEmail(destination); err != nil {
		d.metrics.RecordDispatch(ctx, msg.Transition, core.MetricFailed)
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	msgID, err := d.provider.Send(ctx, types.SendInput{
		To:          destination,
		From:        d.sender,
		Subject:     msg.Subject,
		BodyHTML:    msg.BodyHTML,
		BodyText:    msg.BodyText,
		ReferenceID: types.GetTraceID(ctx),
	})
	if err != nil {
		d.metrics.RecordDispatch(ctx, msg.Transition, core.MetricFailed)
		if IsBlocklistError(err) {
			logger.Warn("recipient blocked by provider", "dest", types.RedactEmail(destination))
		}
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	d.metrics.RecordDispatch(ctx, msg.Transition, core.MetricSuccess)

	logger.Info("mail sent",
		"subject", msg.Subject,
		"dest", types.RedactEmail(destination),
		"provider_message_id", msgID,
	)
	return nil
}
