package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"safirnotify/internal/external"
	"safirnotify/internal/types"
)

// ValidationResult is the outcome of checking one operator input.
type ValidationResult struct {
	Valid   bool
	Message string
}

func valid(msg string) ValidationResult   { return ValidationResult{Valid: true, Message: msg} }
func invalid(msg string) ValidationResult { return ValidationResult{Valid: false, Message: msg} }

// Validator checks operator input before it is written to SSM. The live
// checks authenticate against Keystone and the SMTP relay with the values
// just entered.
type Validator struct {
	httpClient *http.Client
	validate   *validator.Validate

	// verifySMTP is replaced in tests; the default dials the relay.
	verifySMTP func(ctx context.Context, cfg external.SMTPConfig) error
}

// NewValidator creates a Validator with production dependencies.
func NewValidator() *Validator {
	return NewValidatorWithDeps(&http.Client{Timeout: 10 * time.Second}, nil)
}

// NewValidatorWithDeps creates a Validator with injected dependencies.
func NewValidatorWithDeps(httpClient *http.Client, verifySMTP func(context.Context, external.SMTPConfig) error) *Validator {
	if verifySMTP == nil {
		verifySMTP = func(ctx context.Context, cfg external.SMTPConfig) error {
			return external.NewSMTPClient(cfg).Verify(ctx)
		}
	}
	return &Validator{
		httpClient: httpClient,
		validate:   validator.New(),
		verifySMTP: verifySMTP,
	}
}

// validateTimeout bounds each live check.
const validateTimeout = 15 * time.Second

// ValidateURL accepts absolute http(s) URLs.
func (v *Validator) ValidateURL(_ context.Context, raw string) ValidationResult {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return invalid(fmt.Sprintf("%q is not an absolute URL", raw))
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return invalid(fmt.Sprintf("scheme %q is not http or https", u.Scheme))
	}
	if u.Scheme == "http" {
		return valid("URL accepted (plain http)")
	}
	return valid("URL accepted")
}

// ValidateEmail applies the same syntactic check as the dispatcher.
func (v *Validator) ValidateEmail(_ context.Context, addr string) ValidationResult {
	if err := types.ValidateEmail(addr); err != nil {
		return invalid(fmt.Sprintf("%q is not a valid email address", addr))
	}
	return valid("address accepted")
}

// ValidateHost accepts a hostname or IP address, optionally with a port.
func (v *Validator) ValidateHost(_ context.Context, input string) ValidationResult {
	host := input
	if h, port, err := net.SplitHostPort(input); err == nil {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return invalid(fmt.Sprintf("port %q is out of range", port))
		}
		host = h
	}
	if net.ParseIP(host) != nil {
		return valid("IP address accepted")
	}
	if err := v.validate.Var(host, "hostname_rfc1123"); err != nil {
		return invalid(fmt.Sprintf("%q is not a valid hostname", host))
	}
	return valid("hostname accepted")
}

// ValidateNonEmpty rejects blank input.
func (v *Validator) ValidateNonEmpty(_ context.Context, input string) ValidationResult {
	if strings.TrimSpace(input) == "" {
		return invalid("value must not be empty")
	}
	return valid("value accepted")
}

// VerifyKeystone obtains a scoped token and checks the catalog lists both
// services the notifier reads from.
func (v *Validator) VerifyKeystone(ctx context.Context, cfg external.KeystoneConfig) ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	base := external.NewBaseClient(v.httpClient, "bootstrap-keystone", types.ErrCodeUpstreamIdentity,
		external.RetryPolicy{})
	auth := external.NewKeystoneAuth(base, cfg, nil)

	if _, err := auth.Token(ctx); err != nil {
		if types.HasCode(err, types.ErrCodeAuthInvalidCreds) {
			return invalid("Keystone rejected the credentials")
		}
		return invalid(fmt.Sprintf("Keystone authentication failed: %v", err))
	}
	if _, err := auth.Endpoint(ctx, "alarming", "metering"); err != nil {
		return invalid("token catalog has no alarming or metering endpoint")
	}
	if _, err := auth.Endpoint(ctx, "compute"); err != nil {
		return invalid("token catalog has no compute endpoint")
	}
	return valid("Keystone token issued; alarming and compute endpoints found")
}

// VerifySMTP logs in to the relay without sending mail.
func (v *Validator) VerifySMTP(ctx context.Context, cfg external.SMTPConfig) ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	if err := v.verifySMTP(ctx, cfg); err != nil {
		return invalid(fmt.Sprintf("SMTP login failed: %v", err))
	}
	return valid("SMTP relay accepted the login")
}
