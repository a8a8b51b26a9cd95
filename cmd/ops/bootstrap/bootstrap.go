package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"safirnotify/internal/external"
)

// ParameterType selects the SSM storage type.
type ParameterType int

const (
	// ParamSecureString is encrypted at rest with the account's KMS key.
	ParamSecureString ParameterType = iota
	// ParamString is plaintext.
	ParamString
)

// BootstrapStep is one parameter the notifier reads through
// {EnvVar}_SSM_PARAM.
type BootstrapStep struct {
	HumanLabel string
	// EnvVar is the configuration variable the parameter resolves.
	EnvVar string
	// SSMKey is appended to /{env}/safirnotify/.
	SSMKey     string
	ParamType  ParameterType
	Prompt     string
	ValidateFn func(ctx context.Context, input string) ValidationResult
	IsSecret   bool
	// Optional steps skip on empty input without confirmation.
	Optional bool
	Phase    string
}

// PhaseCheck runs a live check once every step of Phase was entered in this
// session. values is keyed by EnvVar.
type PhaseCheck struct {
	Phase string
	Label string
	Check func(ctx context.Context, values map[string]string) ValidationResult
}

// maxRetries bounds validation attempts per step.
const maxRetries = 5

var errSkipped = errors.New("parameter skipped by operator")

// BuildInventory returns the ordered parameters of a deployment.
func BuildInventory(v *Validator) []BootstrapStep {
	return []BootstrapStep{
		{
			HumanLabel: "Keystone Auth URL",
			EnvVar:     "OS_AUTH_URL",
			SSMKey:     "openstack/auth_url",
			ParamType:  ParamString,
			Prompt:     "Identity endpoint of the cloud, e.g. https://keystone.example.com:5000/v3",
			ValidateFn: v.ValidateURL,
			Phase:      "OpenStack Identity",
		},
		{
			HumanLabel: "Keystone Username",
			EnvVar:     "OS_USERNAME",
			SSMKey:     "openstack/username",
			ParamType:  ParamString,
			Prompt:     "Service user with read access to alarms and servers:",
			ValidateFn: v.ValidateNonEmpty,
			Phase:      "OpenStack Identity",
		},
		{
			HumanLabel: "Keystone Password",
			EnvVar:     "OS_PASSWORD",
			SSMKey:     "openstack/password",
			ParamType:  ParamSecureString,
			Prompt:     "Password of the service user:",
			ValidateFn: v.ValidateNonEmpty,
			IsSecret:   true,
			Phase:      "OpenStack Identity",
		},
		{
			HumanLabel: "Keystone Project",
			EnvVar:     "OS_PROJECT_NAME",
			SSMKey:     "openstack/project_name",
			ParamType:  ParamString,
			Prompt:     "Project the token is scoped to:",
			ValidateFn: v.ValidateNonEmpty,
			Phase:      "OpenStack Identity",
		},
		{
			HumanLabel: "SMTP Server",
			EnvVar:     "SMTP_SERVER",
			SSMKey:     "email/smtp_server",
			ParamType:  ParamString,
			Prompt:     "Mail relay hostname (port is configured with SMTP_PORT):",
			ValidateFn: v.ValidateHost,
			Phase:      "Mail Relay",
		},
		{
			HumanLabel: "SMTP Login Address",
			EnvVar:     "SMTP_LOGIN_ADDR",
			SSMKey:     "email/login_address",
			ParamType:  ParamString,
			Prompt:     "Mailbox used to log in and as the sender address:",
			ValidateFn: v.ValidateEmail,
			Phase:      "Mail Relay",
		},
		{
			HumanLabel: "SMTP Password",
			EnvVar:     "SMTP_PASSWORD",
			SSMKey:     "email/smtp_password",
			ParamType:  ParamSecureString,
			Prompt:     "Password of the mailbox:",
			ValidateFn: v.ValidateNonEmpty,
			IsSecret:   true,
			Phase:      "Mail Relay",
		},
		{
			HumanLabel: "Monitor Panel URL",
			EnvVar:     "MONITOR_PANEL_URL",
			SSMKey:     "panel/monitor_url",
			ParamType:  ParamString,
			Prompt:     "Page linked from notification emails (empty to skip):",
			ValidateFn: v.ValidateURL,
			Optional:   true,
			Phase:      "Notification Content",
		},
	}
}

// BuildPhaseChecks returns the live checks run after each phase.
func BuildPhaseChecks(v *Validator, smtpPort int) []PhaseCheck {
	return []PhaseCheck{
		{
			Phase: "OpenStack Identity",
			Label: "Keystone login",
			Check: func(ctx context.Context, values map[string]string) ValidationResult {
				return v.VerifyKeystone(ctx, external.KeystoneConfig{
					AuthURL:           values["OS_AUTH_URL"],
					Username:          values["OS_USERNAME"],
					Password:          values["OS_PASSWORD"],
					ProjectName:       values["OS_PROJECT_NAME"],
					UserDomainName:    "Default",
					ProjectDomainName: "Default",
				})
			},
		},
		{
			Phase: "Mail Relay",
			Label: "SMTP login",
			Check: func(ctx context.Context, values map[string]string) ValidationResult {
				return v.VerifySMTP(ctx, external.SMTPConfig{
					Host:         values["SMTP_SERVER"],
					Port:         smtpPort,
					LoginAddress: values["SMTP_LOGIN_ADDR"],
					Password:     values["SMTP_PASSWORD"],
					TLSPolicy:    "mandatory",
				})
			},
		},
	}
}

// BootstrapRunner walks the inventory: probe SSM, prompt, validate, write.
type BootstrapRunner struct {
	SSM       *SSMManager
	Validator *Validator
	Stdin     io.Reader
	Stderr    io.Writer
	SMTPPort  int

	// SkipChecks disables the live Keystone and SMTP logins.
	SkipChecks bool

	scanner *bufio.Scanner

	inventoryOverride []BootstrapStep
	checksOverride    []PhaseCheck
}

// NewBootstrapRunner creates a BootstrapRunner with production dependencies.
func NewBootstrapRunner(bctx *BootstrapContext) *BootstrapRunner {
	return &BootstrapRunner{
		SSM:       NewSSMManager(bctx),
		Validator: NewValidator(),
		Stdin:     os.Stdin,
		Stderr:    os.Stderr,
		SMTPPort:  587,
	}
}

type stepResult struct {
	Label  string
	EnvVar string
	Action string // "written", "skipped", "overwritten", "kept"
	Path   string
}

// Run executes the protocol and prints the _SSM_PARAM settings for the
// deployment.
func (r *BootstrapRunner) Run(ctx context.Context) error {
	inventory := r.inventoryOverride
	if inventory == nil {
		inventory = BuildInventory(r.Validator)
	}
	checks := r.checksOverride
	if checks == nil {
		checks = BuildPhaseChecks(r.Validator, r.SMTPPort)
	}

	var results []stepResult
	values := make(map[string]string)
	phaseSteps := make(map[string]int)
	phaseEntered := make(map[string]int)
	for _, step := range inventory {
		phaseSteps[step.Phase]++
	}

	var currentPhase string
	for i, step := range inventory {
		if step.Phase != currentPhase {
			if err := r.runPhaseCheck(ctx, checks, currentPhase, phaseSteps, phaseEntered, values); err != nil {
				return err
			}
			currentPhase = step.Phase
			r.printPhaseHeader(currentPhase)
		}

		fmt.Fprintf(r.Stderr, "\n[%d/%d] %s\n", i+1, len(inventory), step.HumanLabel)

		result, value, err := r.processStep(ctx, step)
		if err != nil {
			return fmt.Errorf("step %q failed: %w", step.HumanLabel, err)
		}
		if value != "" {
			values[step.EnvVar] = value
			phaseEntered[step.Phase]++
		}
		results = append(results, result)
	}
	if err := r.runPhaseCheck(ctx, checks, currentPhase, phaseSteps, phaseEntered, values); err != nil {
		return err
	}

	r.printSummary(results)
	return nil
}

// runPhaseCheck runs the check for phase when all of its steps were entered
// in this session. Values already in SSM are never read back.
func (r *BootstrapRunner) runPhaseCheck(ctx context.Context, checks []PhaseCheck, phase string, steps, entered map[string]int, values map[string]string) error {
	if phase == "" || r.SkipChecks {
		return nil
	}
	for _, c := range checks {
		if c.Phase != phase {
			continue
		}
		if entered[phase] != steps[phase] {
			fmt.Fprintf(r.Stderr, "\n  %s not verified: some values were kept or skipped.\n", c.Label)
			continue
		}
		res := c.Check(ctx, values)
		if !res.Valid {
			fmt.Fprintf(r.Stderr, "\n  %s FAILED: %s\n", c.Label, res.Message)
			return fmt.Errorf("%s failed: %s (rerun and overwrite the %s values)", c.Label, res.Message, phase)
		}
		fmt.Fprintf(r.Stderr, "\n  %s OK: %s\n", c.Label, res.Message)
	}
	return nil
}

// processStep returns the entered value, or "" when nothing was entered.
func (r *BootstrapRunner) processStep(ctx context.Context, step BootstrapStep) (stepResult, string, error) {
	path := r.SSM.SSMPath(step.SSMKey)
	result := stepResult{Label: step.HumanLabel, EnvVar: step.EnvVar, Path: path}

	exists, err := r.SSM.ParameterExists(ctx, path)
	if err != nil {
		return result, "", fmt.Errorf("checking existence of %s: %w", path, err)
	}

	if exists {
		fmt.Fprintf(r.Stderr, "  Parameter already exists: %s\n", path)
		choice, err := r.promptSkipOrOverwrite()
		if err != nil {
			return result, "", fmt.Errorf("reading skip/overwrite choice: %w", err)
		}
		if choice == "skip" {
			fmt.Fprintf(r.Stderr, "  Kept.\n")
			result.Action = "kept"
			return result, "", nil
		}
	}

	value, err := r.promptAndValidate(ctx, step)
	if errors.Is(err, errSkipped) {
		fmt.Fprintf(r.Stderr, "  Skipped.\n")
		result.Action = "skipped"
		return result, "", nil
	}
	if err != nil {
		return result, "", err
	}

	if step.ParamType == ParamSecureString {
		err = r.SSM.PutSecret(ctx, path, value, exists)
	} else {
		err = r.SSM.PutString(ctx, path, value)
	}
	if err != nil {
		return result, "", fmt.Errorf("writing SSM parameter %s: %w", path, err)
	}

	result.Action = "written"
	if exists {
		result.Action = "overwritten"
	}
	fmt.Fprintf(r.Stderr, "  Stored: %s\n", path)
	return result, value, nil
}

func (r *BootstrapRunner) promptAndValidate(ctx context.Context, step BootstrapStep) (string, error) {
	fmt.Fprintf(r.Stderr, "\n  %s\n\n", step.Prompt)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var input string
		var err error
		if step.IsSecret {
			input, err = r.readSecretInput("  > ")
		} else {
			input, err = r.readInput("  > ")
		}
		if err != nil {
			return "", fmt.Errorf("reading input for %s: %w", step.HumanLabel, err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			if step.Optional {
				return "", errSkipped
			}
			choice, err := r.promptSkipOrRetry()
			if err != nil {
				return "", fmt.Errorf("reading skip/retry choice for %s: %w", step.HumanLabel, err)
			}
			if choice == "skip" {
				return "", errSkipped
			}
			attempt--
			continue
		}

		if step.IsSecret {
			fmt.Fprintf(r.Stderr, "  Received %d chars.\n", len(input))
		}

		if step.ValidateFn != nil {
			vr := step.ValidateFn(ctx, input)
			if !vr.Valid {
				fmt.Fprintf(r.Stderr, "  Validation failed: %s\n", vr.Message)
				if attempt < maxRetries {
					fmt.Fprintf(r.Stderr, "  Try again (%d/%d).\n", attempt, maxRetries)
				}
				continue
			}
			fmt.Fprintf(r.Stderr, "  Validated: %s\n", vr.Message)
		}
		return input, nil
	}

	return "", fmt.Errorf("maximum retries (%d) exceeded for %s", maxRetries, step.HumanLabel)
}

func (r *BootstrapRunner) scanLine() (string, error) {
	if r.scanner == nil {
		r.scanner = bufio.NewScanner(r.Stdin)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *BootstrapRunner) readInput(prompt string) (string, error) {
	fmt.Fprint(r.Stderr, prompt)
	return r.scanLine()
}

// readSecretInput disables echo when stdin is a terminal and falls back to
// line reading for piped input.
func (r *BootstrapRunner) readSecretInput(prompt string) (string, error) {
	fmt.Fprint(r.Stderr, prompt)

	if f, ok := r.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret input: %w", err)
		}
		return string(password), nil
	}
	return r.scanLine()
}

func (r *BootstrapRunner) promptSkipOrOverwrite() (string, error) {
	for {
		fmt.Fprint(r.Stderr, "  [S]kip or [O]verwrite? ")
		line, err := r.scanLine()
		if err != nil {
			return "", err
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "s", "skip":
			return "skip", nil
		case "o", "overwrite":
			return "overwrite", nil
		default:
			fmt.Fprintf(r.Stderr, "  Please enter 'S' to skip or 'O' to overwrite.\n")
		}
	}
}

func (r *BootstrapRunner) promptSkipOrRetry() (string, error) {
	for {
		fmt.Fprint(r.Stderr, "  No input received. [S]kip this parameter or [R]etry? ")
		line, err := r.scanLine()
		if err != nil {
			return "", err
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "s", "skip":
			return "skip", nil
		case "r", "retry":
			return "retry", nil
		default:
			fmt.Fprintf(r.Stderr, "  Please enter 'S' to skip or 'R' to retry.\n")
		}
	}
}

func (r *BootstrapRunner) printPhaseHeader(phase string) {
	fmt.Fprintf(r.Stderr, "\n============================================================\n")
	fmt.Fprintf(r.Stderr, "  Phase: %s\n", phase)
	fmt.Fprintf(r.Stderr, "============================================================\n")
}

// printSummary lists the actions taken and the {EnvVar}_SSM_PARAM lines to
// put in the function environment.
func (r *BootstrapRunner) printSummary(results []stepResult) {
	fmt.Fprintf(r.Stderr, "\n============================================================\n")
	fmt.Fprintf(r.Stderr, "  Bootstrap Summary\n")
	fmt.Fprintf(r.Stderr, "============================================================\n")

	counts := make(map[string]int)
	for _, res := range results {
		counts[res.Action]++
		fmt.Fprintf(r.Stderr, "  %-14s %s\n", "["+strings.ToUpper(res.Action)+"]", res.Label)
	}
	fmt.Fprintf(r.Stderr, "------------------------------------------------------------\n")
	fmt.Fprintf(r.Stderr, "  Written: %d | Overwritten: %d | Kept: %d | Skipped: %d\n",
		counts["written"], counts["overwritten"], counts["kept"], counts["skipped"])
	fmt.Fprintf(r.Stderr, "============================================================\n\n")

	fmt.Fprintf(r.Stderr, "  Function environment:\n")
	for _, res := range results {
		if res.Action == "skipped" {
			continue
		}
		fmt.Fprintf(r.Stderr, "    %s_SSM_PARAM=%s\n", res.EnvVar, res.Path)
	}
	fmt.Fprintf(r.Stderr, "    SMTP_PORT=%s\n\n", strconv.Itoa(r.SMTPPort))
}
