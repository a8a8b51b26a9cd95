package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safirnotify/internal/alarm"
	"safirnotify/internal/config"
	"safirnotify/internal/notifications/core"
	"safirnotify/internal/types"
)

func localConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Service:     "safir-notifier",
		OpenStack:   config.OpenStackConfig{Stub: true, RequestTimeout: time.Second},
		Email: config.EmailConfig{
			Provider:     "stub",
			LoginAddress: "noreply@safir.example",
			FromName:     "Safir Cloud Platform",
			SendTimeout:  time.Second,
		},
		Panel: config.PanelConfig{MonitorPanelURL: "https://panel.safir.example/monitor"},
		AWS:   config.AWSConfig{Region: "eu-central-1"},
		Observability: config.ObservabilityConfig{
			MetricNamespace: "SafirNotifier",
		},
	}
}

type countingLoader struct{ calls int }

func (l *countingLoader) load(context.Context) (aws.Config, error) {
	l.calls++
	return aws.Config{Region: "eu-central-1", Credentials: aws.AnonymousCredentials{}}, nil
}

func TestBuild_LocalStubsNeedNoAWS(t *testing.T) {
	loader := &countingLoader{}
	c, err := Build(context.Background(), localConfig(), types.NopLogger{}, loader.load)
	require.NoError(t, err)

	assert.NotNil(t, c.Handler)
	assert.Nil(t, c.Publisher)
	assert.Empty(t, c.Probes)
	assert.IsType(t, core.NopMetrics{}, c.Metrics)
	assert.Zero(t, loader.calls)
}

func TestBuild_StubPipelineDispatches(t *testing.T) {
	c, err := Build(context.Background(), localConfig(), types.NopLogger{}, nil)
	require.NoError(t, err)

	outcome, err := c.Handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "ok", "cpu above threshold")
	require.NoError(t, err)
	assert.Equal(t, alarm.OutcomeDispatched, outcome)

	outcome, err = c.Handler.HandleAlarmEvent(context.Background(), "alarm-1", "alarm", "alarm", "")
	require.NoError(t, err)
	assert.Equal(t, alarm.OutcomeSkipped, outcome)
}

func TestBuild_AWSComponentsShareOneConfig(t *testing.T) {
	cfg := localConfig()
	cfg.Email.Provider = "ses"
	cfg.Email.FromAddress = "alerts@safir.example"
	cfg.Observability.EnableMetrics = true
	cfg.AWS.AlarmQueueURL = "https://sqs.eu-central-1.amazonaws.com/123456789012/alarms"

	loader := &countingLoader{}
	c, err := Build(context.Background(), cfg, types.NopLogger{}, loader.load)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
	assert.NotNil(t, c.Publisher)
	assert.IsType(t, &core.CloudWatchNotificationMetrics{}, c.Metrics)
}

func TestBuild_AWSLoadFailure(t *testing.T) {
	cfg := localConfig()
	cfg.Observability.EnableMetrics = true

	_, err := Build(context.Background(), cfg, types.NopLogger{}, func(context.Context) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestBuild_OpenStackRegistersIdentityProbe(t *testing.T) {
	cfg := localConfig()
	cfg.OpenStack = config.OpenStackConfig{
		AuthURL:           "https://keystone.safir.example:5000",
		Username:          "notifier",
		Password:          "secret",
		ProjectName:       "service",
		UserDomainName:    "Default",
		ProjectDomainName: "Default",
		Interface:         "public",
		RequestTimeout:    time.Second,
	}
	cfg.Email.Provider = "smtp"
	cfg.Email.SMTPServer = "smtp.safir.example"
	cfg.Email.SMTPPort = 587

	c, err := Build(context.Background(), cfg, types.NopLogger{}, nil)
	require.NoError(t, err)

	require.Len(t, c.Probes, 1)
	assert.Equal(t, "identity", c.Probes[0].Name())
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := localConfig()
	cfg.Email.Provider = "pigeon"

	_, err := Build(context.Background(), cfg, types.NopLogger{}, nil)
	require.Error(t, err)
}

func TestUserAgent(t *testing.T) {
	cfg := localConfig()
	assert.Equal(t, "safir-notifier/dev", userAgent(cfg))

	cfg.Build.Version = "1.4.0"
	assert.Equal(t, "safir-notifier/1.4.0", userAgent(cfg))
}
