package secrets

import "context"

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the value of the named secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs (env, file).
	Name() string

	// Supports reports whether the provider can be asked for name. The
	// manager skips providers that cannot.
	Supports(name string) bool
}
