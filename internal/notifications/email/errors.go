// Package email composes alarm notification emails from embedded templates
// and dispatches them through an external EmailProvider (SMTP or AWS SES).
package email

import (
	"errors"

	"safirnotify/internal/types"
)

// ErrDispatch wraps any failure of the mail transport to accept a message.
var ErrDispatch = errors.New("email dispatch failed")

// ErrRecipientBlocked indicates the mail transport refused the recipient
// outright (SES suppression list, SMTP 5xx on RCPT).
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// IsBlocklistError checks whether an error indicates the recipient is blocked
// by the email provider, via either the sentinel or ErrCodeEmailBlocked.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	return types.HasCode(err, types.ErrCodeEmailBlocked)
}
