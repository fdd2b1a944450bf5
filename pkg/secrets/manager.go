package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// refPattern matches ${secret:name} references.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets from an ordered list of providers and caches
// the values for a TTL. A zero TTL disables caching.
type Manager struct {
	providers []Provider
	ttl       time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewManager creates a manager that tries providers in order.
func NewManager(ttl time.Duration, providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		ttl:       ttl,
		logger:    slog.Default().With("component", "secrets"),
		cache:     make(map[string]cacheEntry),
		now:       time.Now,
	}
}

// GetSecret returns the value from the first supporting provider that
// has it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cached(name); ok {
		return value, nil
	}

	var errs []error
	for _, p := range m.providers {
		if !p.Supports(name) {
			continue
		}
		value, err := p.GetSecret(ctx, name)
		if err != nil {
			m.logger.DebugContext(ctx, "secret provider failed",
				"provider", p.Name(), "name", redactName(name), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		m.store(name, value)
		m.logger.DebugContext(ctx, "secret resolved", "provider", p.Name(), "name", redactName(name))
		return value, nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("secret %q: no provider supports it", name)
	}
	return "", fmt.Errorf("secret %q: %w", name, errors.Join(errs...))
}

// Resolve replaces every ${secret:name} reference in s. Values without
// references are returned as they are. All unresolved references are
// reported together.
func (m *Manager) Resolve(ctx context.Context, s string) (string, error) {
	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return ref
		}
		return value
	})
	if len(errs) > 0 {
		return "", fmt.Errorf("failed to resolve secret references: %w", errors.Join(errs...))
	}
	return out, nil
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

func (m *Manager) cached(name string) (string, bool) {
	if m.ttl <= 0 {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cache[name]
	if !ok || !m.now().Before(e.expiresAt) {
		delete(m.cache, name)
		return "", false
	}
	return e.value, true
}

func (m *Manager) store(name, value string) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[name] = cacheEntry{value: value, expiresAt: m.now().Add(m.ttl)}
}

// redactName keeps the first and last two characters of a secret name.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
