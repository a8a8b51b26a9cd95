package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// emailValidator is shared; validator.Validate is safe for concurrent use
// and caches struct metadata.
var emailValidator = validator.New()

// ValidateEmail performs a syntactic check of a destination address.
// It does not resolve the domain or contact the mail server.
func ValidateEmail(addr string) error {
	if addr == "" {
		return NewAppError(ErrCodeValidationInvalidEmail, "destination address is empty", nil)
	}
	if err := emailValidator.Var(addr, "email"); err != nil {
		return NewAppError(ErrCodeValidationInvalidEmail, fmt.Sprintf("malformed destination address %q", addr), err)
	}
	return nil
}

// IsValidEmail is the boolean form of ValidateEmail.
func IsValidEmail(addr string) bool {
	return ValidateEmail(addr) == nil
}
