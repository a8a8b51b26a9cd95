// Package config loads the notifier's configuration once at process start.
// Values resolve through the chain
//
//	OS environment (highest) -> .env file -> AWS SSM Parameter Store (lowest)
//
// and a missing or malformed value fails startup.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration. It is immutable after LoadConfig;
// components receive only the section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"safir-notifier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`

	OpenStack     OpenStackConfig
	Email         EmailConfig
	Panel         PanelConfig
	AWS           AWSConfig
	Server        ServerConfig
	Worker        WorkerConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// OpenStackConfig holds the Keystone password credentials used to read alarm
// definitions and server names.
type OpenStackConfig struct {
	// Stub replaces the OpenStack clients with canned responses (local only).
	Stub bool `envconfig:"OPENSTACK_STUB" default:"false"`

	AuthURL           string       `envconfig:"OS_AUTH_URL" validate:"required_if=Stub false,omitempty,url"`
	Username          string       `envconfig:"OS_USERNAME" validate:"required_if=Stub false"`
	Password          SecretString `envconfig:"OS_PASSWORD" validate:"required_if=Stub false"`
	ProjectName       string       `envconfig:"OS_PROJECT_NAME" validate:"required_if=Stub false"`
	UserDomainName    string       `envconfig:"OS_USER_DOMAIN_NAME" default:"Default"`
	ProjectDomainName string       `envconfig:"OS_PROJECT_DOMAIN_NAME" default:"Default"`
	Region            string       `envconfig:"OS_REGION_NAME"`
	Interface         string       `envconfig:"OS_INTERFACE" default:"public" validate:"oneof=public internal admin"`

	// Endpoint overrides skip service catalog discovery.
	AlarmingEndpoint string `envconfig:"OS_ALARMING_ENDPOINT" validate:"omitempty,url"`
	ComputeEndpoint  string `envconfig:"OS_COMPUTE_ENDPOINT" validate:"omitempty,url"`

	RequestTimeout time.Duration `envconfig:"OS_REQUEST_TIMEOUT" default:"10s"`
}

// EmailConfig selects and configures the mail transport.
type EmailConfig struct {
	Provider string `envconfig:"EMAIL_PROVIDER" default:"smtp" validate:"oneof=smtp ses stub"`

	SMTPServer    string       `envconfig:"SMTP_SERVER"`
	SMTPPort      int          `envconfig:"SMTP_PORT" default:"587" validate:"min=1,max=65535"`
	LoginAddress  string       `envconfig:"SMTP_LOGIN_ADDR" validate:"omitempty,email"`
	Password      SecretString `envconfig:"SMTP_PASSWORD"`
	SMTPTLSPolicy string       `envconfig:"SMTP_TLS_POLICY" default:"opportunistic" validate:"oneof=mandatory opportunistic none"`

	// FromAddress is the sender for SES. SMTP sends from LoginAddress.
	FromAddress  string        `envconfig:"EMAIL_FROM_ADDRESS" validate:"omitempty,email"`
	FromName     string        `envconfig:"EMAIL_FROM_NAME" default:"Safir Cloud Platform"`
	SESConfigSet string        `envconfig:"SES_CONFIG_SET"`
	SendTimeout  time.Duration `envconfig:"EMAIL_SEND_TIMEOUT" default:"30s"`
}

// SenderAddress returns the From address for the configured provider.
func (e EmailConfig) SenderAddress() string {
	if e.Provider == "smtp" || e.FromAddress == "" {
		return e.LoginAddress
	}
	return e.FromAddress
}

// PanelConfig holds links rendered into notification emails.
type PanelConfig struct {
	MonitorPanelURL string `envconfig:"MONITOR_PANEL_URL" validate:"omitempty,url"`
}

// AWSConfig holds AWS regional settings and resource identifiers.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-central-1"`
	// AlarmQueueURL, when set, makes the webhook enqueue events for the
	// worker instead of handling them inline.
	AlarmQueueURL string `envconfig:"ALARM_QUEUE_URL" validate:"omitempty,url"`
	// LocalStack support. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ServerConfig holds webhook HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// WorkerConfig tunes the SQS batch worker.
type WorkerConfig struct {
	Concurrency int `envconfig:"WORKER_CONCURRENCY" default:"4" validate:"min=1,max=64"`
	// EventTimeout bounds the handling of a single queued event.
	EventTimeout time.Duration `envconfig:"WORKER_EVENT_TIMEOUT" default:"60s"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SafirNotifier"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// IsLocal reports whether the process runs outside AWS.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// Validate checks rules that span fields and cannot be expressed as tags.
func (c *Config) Validate() error {
	switch c.Email.Provider {
	case "smtp":
		if c.Email.SMTPServer == "" || c.Email.LoginAddress == "" {
			return fmt.Errorf("EMAIL_PROVIDER=smtp requires SMTP_SERVER and SMTP_LOGIN_ADDR")
		}
	case "ses":
		if c.Email.SenderAddress() == "" {
			return fmt.Errorf("EMAIL_PROVIDER=ses requires EMAIL_FROM_ADDRESS or SMTP_LOGIN_ADDR")
		}
	case "stub":
		if !c.IsLocal() {
			return fmt.Errorf("EMAIL_PROVIDER=stub is only allowed with APP_ENV=local")
		}
	}
	if c.OpenStack.Stub && !c.IsLocal() {
		return fmt.Errorf("OPENSTACK_STUB is only allowed with APP_ENV=local")
	}
	return nil
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
