package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"safirnotify/internal/types"
)

// Service catalog types under which the alarm API is registered. Older
// deployments expose alarms through the metering (Ceilometer) endpoint.
var monitoringServiceTypes = []string{"alarming", "metering"}

// aodhAlarm is the subset of the Aodh/Ceilometer v2 alarm representation
// the notifier reads.
type aodhAlarm struct {
	AlarmID       string `json:"alarm_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ThresholdRule *struct {
		MeterName          string  `json:"meter_name"`
		ComparisonOperator string  `json:"comparison_operator"`
		Threshold          float64 `json:"threshold"`
		Period             int     `json:"period"`
		EvaluationPeriods  int     `json:"evaluation_periods"`
		Query              []struct {
			Field string `json:"field"`
			Op    string `json:"op"`
			Value string `json:"value"`
		} `json:"query"`
	} `json:"threshold_rule"`
}

// AodhClient implements MonitoringClient against the OpenStack alarm API
// (GET /v2/alarms/{id}).
type AodhClient struct {
	svc serviceClient
}

// AodhClientConfig configures an AodhClient.
type AodhClientConfig struct {
	// Endpoint overrides catalog discovery when set.
	Endpoint string
}

// NewAodhClient creates an AodhClient sharing auth with other OpenStack clients.
func NewAodhClient(base *BaseClient, auth *KeystoneAuth, cfg AodhClientConfig) *AodhClient {
	return &AodhClient{svc: serviceClient{
		base:         base,
		auth:         auth,
		serviceTypes: monitoringServiceTypes,
		endpoint:     cfg.Endpoint,
		upstreamCode: types.ErrCodeUpstreamMonitoring,
	}}
}

// GetAlarmDefinition fetches the alarm and maps it onto AlarmDefinition. The
// alarm's description field holds the owner's notification address.
func (c *AodhClient) GetAlarmDefinition(ctx context.Context, alarmID string) (*types.AlarmDefinition, error) {
	var alarm aodhAlarm
	status, err := c.svc.getJSON(ctx, "/v2/alarms/"+url.PathEscape(alarmID), &alarm)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, types.NewAppError(types.ErrCodeNotFoundAlarm,
			fmt.Sprintf("alarm %s not found", alarmID), nil)
	}

	def := &types.AlarmDefinition{
		AlarmID:           alarm.AlarmID,
		Name:              alarm.Name,
		NotificationEmail: alarm.Description,
	}
	if def.AlarmID == "" {
		def.AlarmID = alarmID
	}

	if r := alarm.ThresholdRule; r != nil {
		def.ThresholdRule = types.ThresholdRule{
			MeterName:          r.MeterName,
			ComparisonOperator: r.ComparisonOperator,
			Threshold:          r.Threshold,
			Period:             time.Duration(r.Period) * time.Second,
			EvaluationPeriods:  r.EvaluationPeriods,
		}
		for _, q := range r.Query {
			def.ThresholdRule.Query = append(def.ThresholdRule.Query, types.QueryTerm{
				Field: q.Field,
				Op:    q.Op,
				Value: q.Value,
			})
		}
	}
	return def, nil
}

var _ MonitoringClient = (*AodhClient)(nil)
