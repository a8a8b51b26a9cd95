package external

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"safirnotify/internal/types"
)

// ---------------------------------------------------------------------------
// Stub implementations
//
// Stubs let the notifier boot with APP_ENV=local and no OpenStack or mail
// credentials. They log every call and return predictable values.
// ---------------------------------------------------------------------------

// StubEmailProvider implements EmailProvider by logging the message.
type StubEmailProvider struct {
	logger types.Logger
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger types.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	id := "stub-" + uuid.NewString()
	s.logger.Info("stub: email send",
		"to", types.RedactEmail(input.To),
		"subject", input.Subject,
		"reference_id", input.ReferenceID,
		"body_text_length", len(input.BodyText),
		"body_html_length", len(input.BodyHTML),
		"message_id", id,
	)
	return id, nil
}

// StubMonitoringClient returns a CPU threshold alarm for any ID, addressed
// to Recipient.
type StubMonitoringClient struct {
	Recipient string
	logger    types.Logger
}

// NewStubMonitoringClient creates a new StubMonitoringClient.
func NewStubMonitoringClient(recipient string, logger types.Logger) *StubMonitoringClient {
	return &StubMonitoringClient{Recipient: recipient, logger: logger}
}

func (s *StubMonitoringClient) GetAlarmDefinition(ctx context.Context, alarmID string) (*types.AlarmDefinition, error) {
	s.logger.Info("stub: GetAlarmDefinition called", "alarm_id", alarmID)
	return &types.AlarmDefinition{
		AlarmID:           alarmID,
		Name:              "stub-cpu-high",
		NotificationEmail: s.Recipient,
		ThresholdRule: types.ThresholdRule{
			MeterName:          "cpu_util",
			ComparisonOperator: "gt",
			Threshold:          80,
			Period:             time.Minute,
			EvaluationPeriods:  3,
			Query: []types.QueryTerm{
				{Field: types.ResourceIDField, Op: "eq", Value: "stub-instance"},
			},
		},
	}, nil
}

// StubInventoryClient names every resource after its ID.
type StubInventoryClient struct {
	logger types.Logger
}

// NewStubInventoryClient creates a new StubInventoryClient.
func NewStubInventoryClient(logger types.Logger) *StubInventoryClient {
	return &StubInventoryClient{logger: logger}
}

func (s *StubInventoryClient) GetResourceName(ctx context.Context, resourceID string) (string, error) {
	s.logger.Info("stub: GetResourceName called", "resource_id", resourceID)
	return fmt.Sprintf("server-%s", resourceID), nil
}

var (
	_ EmailProvider    = (*StubEmailProvider)(nil)
	_ MonitoringClient = (*StubMonitoringClient)(nil)
	_ InventoryClient  = (*StubInventoryClient)(nil)
)
