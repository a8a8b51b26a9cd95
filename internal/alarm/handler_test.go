package alarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"safirnotify/internal/notifications/core"
	"safirnotify/internal/notifications/email"
	"safirnotify/internal/types"
)

type handlerFixture struct {
	monitoring *mockMonitoring
	inventory  *mockInventory
	provider   *mockProvider
	metrics    *recordingMetrics
	handler    *Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)

	f := &handlerFixture{
		monitoring: &mockMonitoring{},
		inventory:  &mockInventory{},
		provider:   &mockProvider{},
		metrics:    newRecordingMetrics(),
	}
	enricher := NewEnricher(EnricherConfig{
		Monitoring: f.monitoring,
		Inventory:  f.inventory,
		Metrics:    f.metrics,
	})
	dispatcher := email.NewDispatcher(email.DispatcherConfig{
		Provider: f.provider,
		Sender:   types.SenderIdentity{Name: "Safir Cloud", Address: "noreply@safir.example"},
		Metrics:  f.metrics,
	})
	f.handler = NewHandler(HandlerConfig{
		Enricher:   enricher,
		Composer:   renderer,
		Dispatcher: dispatcher,
		PanelURL:   "https://panel.safir.example/monitor",
		Metrics:    f.metrics,
		Clock:      &fixedClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), step: 250 * time.Millisecond},
	})
	return f
}

func TestHandler_EnterAlarmDispatched(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", resourceTerm("inst-42")), nil)
	f.inventory.On("GetResourceName", mock.Anything, "inst-42").Return("web-server-1", nil)

	var sent types.SendInput
	f.provider.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(types.SendInput) }).
		Return("msg-1", nil).Once()

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "ok", "cpu over threshold")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)
	assert.Equal(t, "user@example.com", sent.To)
	assert.Equal(t, "noreply@safir.example", sent.From.Address)
	assert.Equal(t, email.SubjectAlarm, sent.Subject)
	assert.Contains(t, sent.BodyText, "web-server-1")
	assert.Contains(t, sent.BodyText, "cpu over threshold")
	assert.Contains(t, sent.BodyHTML, "web-server-1")
	assert.Contains(t, sent.BodyHTML, "CPU")
	assert.Contains(t, sent.BodyHTML, "Greater than")
	assert.Contains(t, sent.BodyHTML, "https://panel.safir.example/monitor")

	assert.Equal(t, 1, f.metrics.dispatches[core.MetricSuccess])
	assert.Empty(t, f.metrics.failures)
	require.Len(t, f.metrics.latencies, 1)
	assert.Equal(t, 250*time.Millisecond, f.metrics.latencies[0])
	f.provider.AssertExpectations(t)
}

func TestHandler_EnterOKDispatched(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", resourceTerm("inst-42")), nil)
	f.inventory.On("GetResourceName", mock.Anything, "inst-42").Return("web-server-1", nil)

	var sent types.SendInput
	f.provider.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(types.SendInput) }).
		Return("msg-2", nil).Once()

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "ok", "alarm", "back under threshold")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)
	assert.Equal(t, email.SubjectOK, sent.Subject)
	assert.Contains(t, sent.BodyText, "web-server-1")
	assert.NotContains(t, sent.BodyText, "back under threshold")
}

func TestHandler_SameStateSkipped(t *testing.T) {
	f := newHandlerFixture(t)

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "alarm", "still high")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 1, f.metrics.skips[string(SkipNoTransition)])
	f.monitoring.AssertNotCalled(t, "GetAlarmDefinition", mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_InvalidDestinationSkipped(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("not-an-email", resourceTerm("inst-42")), nil)

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "ok", "alarm", "")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 1, f.metrics.skips[string(SkipInvalidDestination)])
	f.provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_MissingResourceIDStillDispatches(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com"), nil)

	var sent types.SendInput
	f.provider.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(types.SendInput) }).
		Return("msg-3", nil).Once()

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "insufficient data", "no data yet")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)
	assert.Contains(t, sent.BodyText, "An instance of your account")
	f.inventory.AssertNotCalled(t, "GetResourceName", mock.Anything, mock.Anything)
}

func TestHandler_AlarmNotFoundFails(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundAlarm, "alarm alarm-1 not found", nil))

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "ok", "")

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrAlarmLookup)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundAlarm))
	assert.Empty(t, f.metrics.dispatches, "no dispatch was attempted")
	assert.Equal(t, 1, f.metrics.failures["enrich"])
	f.provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandler_DispatchFailureFails(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com"), nil)
	f.provider.On("Send", mock.Anything, mock.Anything).
		Return("", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "smtp unavailable", errors.New("dial tcp: refused"))).Once()

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "ok", "")

	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, email.ErrDispatch)
	assert.NotErrorIs(t, err, ErrAlarmLookup)
	assert.Equal(t, 1, f.metrics.dispatches[core.MetricFailed])
	assert.Equal(t, 1, f.metrics.failures["dispatch"])
	f.provider.AssertNumberOfCalls(t, "Send", 1)
}

func TestHandler_TraceIDReachesProvider(t *testing.T) {
	f := newHandlerFixture(t)
	f.monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com"), nil)

	var sent types.SendInput
	f.provider.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(types.SendInput) }).
		Return("msg-4", nil).Once()

	ctx := types.WithTraceID(context.Background(), "trace-abc")
	_, err := f.handler.Handle(ctx, types.AlarmEvent{
		AlarmID:  "alarm-1",
		Current:  types.AlarmStateAlarm,
		Previous: types.AlarmStateOK,
	})

	require.NoError(t, err)
	assert.Equal(t, "trace-abc", sent.ReferenceID)
}

func TestHandler_NormalizesStates(t *testing.T) {
	f := newHandlerFixture(t)

	outcome, err := f.handler.HandleAlarmEvent(context.Background(), "alarm-1", " OK ", "ok", "")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}
