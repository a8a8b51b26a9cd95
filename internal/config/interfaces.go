package config

import "context"

// SecretProvider resolves _SSM_PARAM pointers to plaintext values.
type SecretProvider interface {
	// GetParametersBatch returns path -> value for every key it resolved.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
