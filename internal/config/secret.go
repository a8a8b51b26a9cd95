package config

const redacted = "[REDACTED]"

// SecretString hides its value from fmt and encoding/json. Call Unmask
// where the plaintext is required.
type SecretString string

func (s SecretString) String() string { return redacted }

// GoString covers %#v.
func (s SecretString) GoString() string { return redacted }

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Unmask returns the plaintext value.
func (s SecretString) Unmask() string { return string(s) }
