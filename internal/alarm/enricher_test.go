package alarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"safirnotify/internal/types"
)

func alarmEvent(current, previous types.AlarmState) types.AlarmEvent {
	return types.AlarmEvent{
		AlarmID:  "alarm-1",
		Current:  current,
		Previous: previous,
		Reason:   "Transition to alarm due to 3 samples outside threshold, most recent: 93.1",
	}
}

func TestEnricher_Enrich_FullPayload(t *testing.T) {
	monitoring := &mockMonitoring{}
	inventory := &mockInventory{}
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", types.QueryTerm{Field: "project_id", Value: "p-1"}, resourceTerm("inst-42")), nil)
	inventory.On("GetResourceName", mock.Anything, "inst-42").Return("web-server-1", nil)

	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory})

	ev := alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK)
	got, err := e.Enrich(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, SkipNone, got.Skip)
	require.NotNil(t, got.Notification)

	n := got.Notification
	assert.Equal(t, types.TransitionEnterAlarm, n.Transition)
	assert.Equal(t, "user@example.com", n.Email)
	require.NotNil(t, n.InstanceName)
	assert.Equal(t, "web-server-1", *n.InstanceName)
	assert.Equal(t, "CPU", n.ResourceType)
	assert.Equal(t, "Greater than", n.ComparisonLabel)
	assert.Equal(t, 80.0, n.Threshold)
	assert.Equal(t, 60*time.Second, n.Period)
	assert.Equal(t, 3, n.EvaluationPeriods)
	assert.Equal(t, ev.Reason, n.Reason)

	monitoring.AssertExpectations(t)
	inventory.AssertExpectations(t)
}

func TestEnricher_Enrich_NoTransitionSkipsWithoutFetching(t *testing.T) {
	monitoring := &mockMonitoring{}
	inventory := &mockInventory{}
	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory})

	for _, ev := range []types.AlarmEvent{
		alarmEvent(types.AlarmStateAlarm, types.AlarmStateAlarm),
		alarmEvent(types.AlarmStateOK, types.AlarmStateOK),
		alarmEvent(types.AlarmStateInsufficientData, types.AlarmStateOK),
	} {
		got, err := e.Enrich(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, SkipNoTransition, got.Skip)
		assert.Nil(t, got.Notification)
	}

	monitoring.AssertNotCalled(t, "GetAlarmDefinition", mock.Anything, mock.Anything)
	inventory.AssertNotCalled(t, "GetResourceName", mock.Anything, mock.Anything)
}

func TestEnricher_Enrich_InvalidEmailSkips(t *testing.T) {
	for _, addr := range []string{"not-an-email", "", "user@", "@example.com"} {
		t.Run(addr, func(t *testing.T) {
			monitoring := &mockMonitoring{}
			inventory := &mockInventory{}
			monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
				Return(cpuAlarm(addr, resourceTerm("inst-42")), nil)

			e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory})
			got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateOK, types.AlarmStateAlarm))

			require.NoError(t, err)
			assert.Equal(t, SkipInvalidDestination, got.Skip)
			inventory.AssertNotCalled(t, "GetResourceName", mock.Anything, mock.Anything)
		})
	}
}

func TestEnricher_Enrich_AlarmLookupFailure(t *testing.T) {
	notFound := types.NewAppError(types.ErrCodeNotFoundAlarm, "alarm alarm-1 not found", nil)
	monitoring := &mockMonitoring{}
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").Return(nil, notFound)

	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: &mockInventory{}})
	got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlarmLookup)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundAlarm))
	assert.Nil(t, got.Notification)
}

func TestEnricher_Enrich_NoResourceID(t *testing.T) {
	monitoring := &mockMonitoring{}
	inventory := &mockInventory{}
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", types.QueryTerm{Field: "project_id", Value: "p-1"}), nil)

	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory})
	got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK))

	require.NoError(t, err)
	require.NotNil(t, got.Notification)
	assert.Nil(t, got.Notification.InstanceName)
	assert.Equal(t, "", got.Notification.InstanceNameOrEmpty())
	inventory.AssertNotCalled(t, "GetResourceName", mock.Anything, mock.Anything)
}

func TestEnricher_Enrich_ResourceLookupFailureDegrades(t *testing.T) {
	monitoring := &mockMonitoring{}
	inventory := &mockInventory{}
	metrics := newRecordingMetrics()
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", resourceTerm("inst-42")), nil)
	inventory.On("GetResourceName", mock.Anything, "inst-42").
		Return("", types.NewAppError(types.ErrCodeUpstreamInventory, "nova unavailable", errors.New("503")))

	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory, Metrics: metrics})
	got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK))

	require.NoError(t, err)
	require.NotNil(t, got.Notification)
	assert.Nil(t, got.Notification.InstanceName)
	assert.Equal(t, "CPU", got.Notification.ResourceType)
	assert.Equal(t, 1, metrics.lookups)
}

func TestEnricher_Enrich_DuplicateResourceIDFirstWins(t *testing.T) {
	monitoring := &mockMonitoring{}
	inventory := &mockInventory{}
	metrics := newRecordingMetrics()
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(cpuAlarm("user@example.com", resourceTerm("inst-first"), resourceTerm("inst-second")), nil)
	inventory.On("GetResourceName", mock.Anything, "inst-first").Return("first", nil)

	e := NewEnricher(EnricherConfig{Monitoring: monitoring, Inventory: inventory, Metrics: metrics})
	got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK))

	require.NoError(t, err)
	require.NotNil(t, got.Notification.InstanceName)
	assert.Equal(t, "first", *got.Notification.InstanceName)
	assert.Equal(t, 1, metrics.duplicates)
	inventory.AssertNotCalled(t, "GetResourceName", mock.Anything, "inst-second")
}

func TestEnricher_Enrich_UnknownVocabularyDegradesToEmpty(t *testing.T) {
	def := cpuAlarm("user@example.com")
	def.ThresholdRule.MeterName = "disk.read.requests.rate"
	def.ThresholdRule.ComparisonOperator = "between"

	monitoring := &mockMonitoring{}
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").Return(def, nil)

	e := NewEnricher(EnricherConfig{Monitoring: monitoring})
	got, err := e.Enrich(context.Background(), alarmEvent(types.AlarmStateOK, types.AlarmStateInsufficientData))

	require.NoError(t, err)
	assert.Equal(t, types.TransitionEnterOK, got.Notification.Transition)
	assert.Empty(t, got.Notification.ResourceType)
	assert.Empty(t, got.Notification.ComparisonLabel)
}

func TestEnricher_Enrich_DeadlinePropagatesToMonitoring(t *testing.T) {
	monitoring := &mockMonitoring{}
	monitoring.On("GetAlarmDefinition", mock.Anything, "alarm-1").
		Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "caller deadline should reach the monitoring client")
		})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	e := NewEnricher(EnricherConfig{Monitoring: monitoring})
	_, err := e.Enrich(ctx, alarmEvent(types.AlarmStateAlarm, types.AlarmStateOK))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrAlarmLookup)
}

func TestFindResourceID(t *testing.T) {
	tests := []struct {
		name        string
		query       []types.QueryTerm
		wantID      string
		wantMatches int
	}{
		{"empty", nil, "", 0},
		{"absent", []types.QueryTerm{{Field: "project_id", Value: "p"}}, "", 0},
		{"single", []types.QueryTerm{{Field: "project_id", Value: "p"}, resourceTerm("r-1")}, "r-1", 1},
		{"first wins", []types.QueryTerm{resourceTerm("r-1"), resourceTerm("r-2"), resourceTerm("r-3")}, "r-1", 3},
		{"empty value", []types.QueryTerm{resourceTerm("")}, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, matches := FindResourceID(tt.query)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantMatches, matches)
		})
	}
}
