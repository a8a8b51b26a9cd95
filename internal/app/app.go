// Package app assembles the alarm notification pipeline from configuration.
// Both the webhook API and the queue worker build their collaborators here so
// the two entrypoints cannot drift apart.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"safirnotify/internal/alarm"
	"safirnotify/internal/api"
	"safirnotify/internal/config"
	"safirnotify/internal/external"
	"safirnotify/internal/notifications/core"
	"safirnotify/internal/notifications/email"
	"safirnotify/internal/types"
)

// Components is the wired pipeline.
type Components struct {
	Handler *alarm.Handler
	// Publisher is nil unless ALARM_QUEUE_URL is set.
	Publisher *core.AlarmEventPublisher
	Probes    []api.HealthProbe
	Metrics   core.NotificationMetrics
}

// AWSLoader returns the SDK configuration. Called at most once, and only
// when a configured component needs AWS.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// DefaultAWSLoader loads the default credential chain for cfg's region and
// honours AWS_ENDPOINT_URL for LocalStack.
func DefaultAWSLoader(cfg *config.Config) AWSLoader {
	return func(ctx context.Context) (aws.Config, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.AWS.EndpointURL != "" {
			awsCfg.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
		return awsCfg, nil
	}
}

type builder struct {
	cfg     *config.Config
	logger  types.Logger
	loadAWS AWSLoader

	awsCfg    *aws.Config
	probes    []api.HealthProbe
	userAgent string
}

// Build wires every collaborator named by cfg.
func Build(ctx context.Context, cfg *config.Config, logger types.Logger, loadAWS AWSLoader) (*Components, error) {
	if loadAWS == nil {
		loadAWS = DefaultAWSLoader(cfg)
	}
	b := &builder{
		cfg:       cfg,
		logger:    logger,
		loadAWS:   loadAWS,
		userAgent: userAgent(cfg),
	}
	return b.build(ctx)
}

func (b *builder) build(ctx context.Context) (*Components, error) {
	metrics, err := b.metrics(ctx)
	if err != nil {
		return nil, err
	}

	monitoring, inventory := b.openStack()

	provider, err := b.emailProvider(ctx)
	if err != nil {
		return nil, err
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	dispatcher := email.NewDispatcher(email.DispatcherConfig{
		Provider: provider,
		Sender: types.SenderIdentity{
			Name:    b.cfg.Email.FromName,
			Address: b.cfg.Email.SenderAddress(),
		},
		Metrics: metrics,
		Logger:  b.logger,
	})

	enricher := alarm.NewEnricher(alarm.EnricherConfig{
		Monitoring: monitoring,
		Inventory:  inventory,
		Metrics:    metrics,
		Logger:     b.logger,
	})

	handler := alarm.NewHandler(alarm.HandlerConfig{
		Enricher:   enricher,
		Composer:   renderer,
		Dispatcher: dispatcher,
		PanelURL:   b.cfg.Panel.MonitorPanelURL,
		Metrics:    metrics,
		Logger:     b.logger,
	})

	publisher, err := b.publisher(ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		Handler:   handler,
		Publisher: publisher,
		Probes:    b.probes,
		Metrics:   metrics,
	}, nil
}

func (b *builder) aws(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	awsCfg, err := b.loadAWS(ctx)
	if err != nil {
		return aws.Config{}, err
	}
	b.awsCfg = &awsCfg
	return awsCfg, nil
}

func (b *builder) metrics(ctx context.Context) (core.NotificationMetrics, error) {
	if !b.cfg.Observability.EnableMetrics {
		return core.NopMetrics{}, nil
	}
	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewCloudWatchNotificationMetrics(
		cloudwatch.NewFromConfig(awsCfg),
		b.cfg.Observability.MetricNamespace,
		b.logger,
	), nil
}

func (b *builder) openStack() (external.MonitoringClient, external.InventoryClient) {
	osCfg := b.cfg.OpenStack
	if osCfg.Stub {
		b.logger.Warn("OPENSTACK_STUB set, using canned alarm definitions")
		return external.NewStubMonitoringClient(b.cfg.Email.SenderAddress(), b.logger),
			external.NewStubInventoryClient(b.logger)
	}

	httpClient := &http.Client{Timeout: osCfg.RequestTimeout}
	newBase := func(name string, code types.ErrorCode) *external.BaseClient {
		return external.NewBaseClient(httpClient, name, code, external.DefaultRetryPolicy(),
			external.WithUserAgent(b.userAgent))
	}

	auth := external.NewKeystoneAuth(newBase("keystone", types.ErrCodeUpstreamIdentity), external.KeystoneConfig{
		AuthURL:           osCfg.AuthURL,
		Username:          osCfg.Username,
		Password:          osCfg.Password.Unmask(),
		ProjectName:       osCfg.ProjectName,
		UserDomainName:    osCfg.UserDomainName,
		ProjectDomainName: osCfg.ProjectDomainName,
		Region:            osCfg.Region,
		Interface:         osCfg.Interface,
	}, types.RealClock{})

	b.probes = append(b.probes, api.HealthProbeFunc{
		ProbeName: "identity",
		Fn: func(ctx context.Context) error {
			_, err := auth.Token(ctx)
			return err
		},
	})

	monitoring := external.NewAodhClient(newBase("aodh", types.ErrCodeUpstreamMonitoring), auth,
		external.AodhClientConfig{Endpoint: osCfg.AlarmingEndpoint})
	inventory := external.NewNovaClient(newBase("nova", types.ErrCodeUpstreamInventory), auth,
		external.NovaClientConfig{Endpoint: osCfg.ComputeEndpoint})
	return monitoring, inventory
}

func (b *builder) emailProvider(ctx context.Context) (external.EmailProvider, error) {
	ec := b.cfg.Email
	switch ec.Provider {
	case "stub":
		b.logger.Warn("EMAIL_PROVIDER=stub, messages are logged instead of sent")
		return external.NewStubEmailProvider(b.logger), nil
	case "ses":
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, err
		}
		return external.NewSESClient(awsCfg, ec.SESConfigSet), nil
	case "smtp", "":
		return external.NewSMTPClient(external.SMTPConfig{
			Host:         ec.SMTPServer,
			Port:         ec.SMTPPort,
			LoginAddress: ec.LoginAddress,
			Password:     ec.Password.Unmask(),
			TLSPolicy:    ec.SMTPTLSPolicy,
			Timeout:      ec.SendTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", ec.Provider)
	}
}

func (b *builder) publisher(ctx context.Context) (*core.AlarmEventPublisher, error) {
	if b.cfg.AWS.AlarmQueueURL == "" {
		return nil, nil
	}
	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewAlarmEventPublisher(sqs.NewFromConfig(awsCfg), b.cfg.AWS.AlarmQueueURL, b.logger), nil
}

func userAgent(cfg *config.Config) string {
	version := cfg.Build.Version
	if version == "" {
		version = "dev"
	}
	return cfg.Service + "/" + version
}
