package external

import (
	"context"

	"safirnotify/internal/types"
)

// ---------------------------------------------------------------------------
// Monitoring Integration (OpenStack Aodh / Ceilometer alarms)
// ---------------------------------------------------------------------------

// MonitoringClient resolves alarm definitions from the monitoring subsystem.
type MonitoringClient interface {
	// GetAlarmDefinition fetches the alarm with the given ID. Implementations
	// return an AppError with ErrCodeNotFoundAlarm when the alarm does not
	// exist, and an upstream code for transport failures.
	GetAlarmDefinition(ctx context.Context, alarmID string) (*types.AlarmDefinition, error)
}

// ---------------------------------------------------------------------------
// Inventory Integration (OpenStack Nova)
// ---------------------------------------------------------------------------

// InventoryClient resolves compute resource identifiers to display names.
type InventoryClient interface {
	// GetResourceName returns the display name of the server with the given
	// ID. ErrCodeNotFoundResource is returned for unknown servers.
	GetResourceName(ctx context.Context, resourceID string) (string, error)
}

// ---------------------------------------------------------------------------
// Email Integration (SMTP, AWS SES)
// ---------------------------------------------------------------------------

// EmailProvider abstracts interactions with the mail transport.
// Implementations transmit pre-rendered email content (Subject, BodyHTML, BodyText).
type EmailProvider interface {
	// Send transmits an email with pre-rendered content.
	// Returns the provider's message ID for tracking and correlation.
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}
