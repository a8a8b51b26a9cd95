package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"safirnotify/internal/notifications/core"
	"safirnotify/internal/types"
)

type mockMonitoring struct {
	mock.Mock
}

func (m *mockMonitoring) GetAlarmDefinition(ctx context.Context, alarmID string) (*types.AlarmDefinition, error) {
	args := m.Called(ctx, alarmID)
	if def := args.Get(0); def != nil {
		return def.(*types.AlarmDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) GetResourceName(ctx context.Context, resourceID string) (string, error) {
	args := m.Called(ctx, resourceID)
	return args.String(0), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// recordingMetrics counts calls per metric.
type recordingMetrics struct {
	mu         sync.Mutex
	dispatches map[core.MetricResult]int
	skips      map[string]int
	failures   map[string]int
	duplicates int
	lookups    int
	latencies  []time.Duration
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		dispatches: map[core.MetricResult]int{},
		skips:      map[string]int{},
		failures:   map[string]int{},
	}
}

func (r *recordingMetrics) RecordDispatch(_ context.Context, _ types.Transition, result core.MetricResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches[result]++
}

func (r *recordingMetrics) RecordLatency(_ context.Context, _ types.Transition, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, d)
}

func (r *recordingMetrics) RecordSkipped(_ context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips[reason]++
}

func (r *recordingMetrics) RecordDuplicateResourceID(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates++
}

func (r *recordingMetrics) RecordResourceLookupFailure(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
}

func (r *recordingMetrics) RecordAlarmFailure(_ context.Context, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[stage]++
}

// fixedClock advances by step on every Now call.
type fixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func cpuAlarm(email string, query ...types.QueryTerm) *types.AlarmDefinition {
	return &types.AlarmDefinition{
		AlarmID:           "alarm-1",
		Name:              "cpu high",
		NotificationEmail: email,
		ThresholdRule: types.ThresholdRule{
			MeterName:          "cpu_util",
			ComparisonOperator: "gt",
			Threshold:          80,
			Period:             60 * time.Second,
			EvaluationPeriods:  3,
			Query:              query,
		},
	}
}

func resourceTerm(id string) types.QueryTerm {
	return types.QueryTerm{Field: types.ResourceIDField, Op: "eq", Value: id}
}
