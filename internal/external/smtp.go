package external

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"safirnotify/internal/types"
)

// ReferenceHeader tags outgoing mail with the alarm event trace ID.
const ReferenceHeader = "X-Safir-Reference-Id"

// SMTPConfig holds the mail relay settings. LoginAddress doubles as the SMTP
// username and the envelope sender.
type SMTPConfig struct {
	Host         string
	Port         int
	LoginAddress string
	Password     string
	// TLSPolicy: "mandatory", "opportunistic" (default) or "none".
	TLSPolicy string
	Timeout   time.Duration
}

// smtpDialer is the part of *mail.Client the provider needs.
type smtpDialer interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
	DialWithContext(ctx context.Context) error
	Close() error
}

// SMTPClient implements EmailProvider over an authenticated SMTP relay. Each
// Send opens its own connection, so the client is safe for concurrent use.
type SMTPClient struct {
	cfg       SMTPConfig
	newDialer func() (smtpDialer, error)
}

// NewSMTPClient creates an SMTPClient. The connection is not opened until
// the first Send.
func NewSMTPClient(cfg SMTPConfig) *SMTPClient {
	c := &SMTPClient{cfg: cfg}
	c.newDialer = c.dial
	return c
}

func (c *SMTPClient) dial() (smtpDialer, error) {
	opts := []mail.Option{
		mail.WithPort(c.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(c.cfg.TLSPolicy)),
	}
	if c.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(c.cfg.Timeout))
	}
	if c.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.cfg.LoginAddress),
			mail.WithPassword(c.cfg.Password),
		)
	}
	return mail.NewClient(c.cfg.Host, opts...)
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch strings.ToLower(s) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// Verify connects and authenticates against the relay without sending.
func (c *SMTPClient) Verify(ctx context.Context) error {
	dialer, err := c.newDialer()
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider, "failed to create SMTP client", err)
	}
	if err := dialer.DialWithContext(ctx); err != nil {
		return mapSMTPError(ctx, err)
	}
	return dialer.Close()
}

// Send builds a multipart/alternative message and delivers it. The returned
// ID is the Message-ID header set on the message.
//
// Error mapping:
//   - RCPT TO rejected → ErrCodeEmailBlocked
//   - context deadline → ErrCodeUpstreamTimeout
//   - Other → ErrCodeUpstreamEmailProvider
func (c *SMTPClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	msg, msgID, err := c.buildMessage(input)
	if err != nil {
		return "", err
	}

	dialer, err := c.newDialer()
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "failed to create SMTP client", err)
	}
	if err := dialer.DialAndSendWithContext(ctx, msg); err != nil {
		return "", mapSMTPError(ctx, err)
	}
	return msgID, nil
}

func (c *SMTPClient) buildMessage(input types.SendInput) (*mail.Msg, string, error) {
	from := input.From.Address
	if from == "" {
		from = c.cfg.LoginAddress
	}

	m := mail.NewMsg()
	var err error
	if input.From.Name != "" {
		err = m.FromFormat(input.From.Name, from)
	} else {
		err = m.From(from)
	}
	if err != nil {
		return nil, "", types.NewAppError(types.ErrCodeValidationInvalidEmail, "invalid sender address", err)
	}
	if err := m.To(input.To); err != nil {
		return nil, "", types.NewAppError(types.ErrCodeValidationInvalidEmail, "invalid recipient address", err)
	}
	m.Subject(input.Subject)

	msgID := fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(from))
	m.SetGenHeader(mail.HeaderMessageID, msgID)
	if input.ReferenceID != "" {
		m.SetGenHeader(mail.Header(ReferenceHeader), input.ReferenceID)
	}

	switch {
	case input.BodyText != "" && input.BodyHTML != "":
		m.SetBodyString(mail.TypeTextPlain, input.BodyText)
		m.AddAlternativeString(mail.TypeTextHTML, input.BodyHTML)
	case input.BodyHTML != "":
		m.SetBodyString(mail.TypeTextHTML, input.BodyHTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, input.BodyText)
	}
	return m, msgID, nil
}

func senderDomain(addr string) string {
	if _, domain, ok := strings.Cut(addr, "@"); ok && domain != "" {
		return domain
	}
	return "localhost"
}

func mapSMTPError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewAppError(types.ErrCodeUpstreamTimeout, "SMTP send timed out", err)
	}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.Reason == mail.ErrSMTPRcptTo {
		return types.NewAppError(types.ErrCodeEmailBlocked,
			fmt.Sprintf("SMTP relay rejected recipient: %v", err), err)
	}

	return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("SMTP error: %v", err), err)
}

var _ EmailProvider = (*SMTPClient)(nil)
