package config

import "context"

// SecretProvider resolves secret references (SSM parameter paths, or plain
// env var names locally) to plaintext values.
type SecretProvider interface {
	// GetParametersBatch returns a map of key to value for every key it
	// could resolve.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
