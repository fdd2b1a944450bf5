// Package governance mirrors retention policies into an external data
// governance system. The mirror is write-only and best effort.
package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// Config configures the governance HTTP client.
type Config struct {
	// BaseURL is the governance API root, e.g. "https://governance.example.com/api/v1".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each HTTP attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries for 5xx responses and transport errors.
	// Default: 2
	MaxRetries int

	// RetryBackoff is the base delay before the first retry; it doubles
	// with every attempt.
	// Default: 1 second
	RetryBackoff time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("governance API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client implements retention.GovernanceSync over HTTP.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a governance client.
func NewClient(config Config) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, errors.New("governance base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: config.Timeout,
		},
		logger: slog.Default().With("component", "retention.governance"),
	}, nil
}

// policyPayload is the document sent to the governance system.
type policyPayload struct {
	ID          string                  `json:"id"`
	OwnerID     string                  `json:"owner_id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Scope       retention.Scope         `json:"scope"`
	Retention   retention.RetentionRule `json:"retention"`
	Disposition retention.Disposition   `json:"disposition"`
	Compliance  retention.Compliance    `json:"compliance"`
	Status      retention.Status        `json:"status"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreatePolicy registers the policy with the governance system and returns
// the external id it was assigned.
func (c *Client) CreatePolicy(ctx context.Context, policy *retention.Policy) (string, error) {
	body, err := json.Marshal(policyPayload{
		ID:          policy.ID,
		OwnerID:     policy.OwnerID,
		Name:        policy.Name,
		Description: policy.Description,
		Scope:       policy.Scope,
		Retention:   policy.Rule,
		Disposition: policy.Disposition,
		Compliance:  policy.Compliance,
		Status:      policy.Status,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, c.config.BaseURL+"/policies", body)
	if err != nil {
		return "", err
	}

	var out createResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode governance response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("governance response has no id")
	}
	return out.ID, nil
}

// do performs a request, retrying transient failures with exponential backoff.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryBackoff << (attempt - 1)
			c.logger.Debug("retrying governance request",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		respBody, err := c.attempt(ctx, method, url, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("governance request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("governance request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read governance response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// Noop is a GovernanceSync that never assigns external ids.
type Noop struct{}

// CreatePolicy implements retention.GovernanceSync.
func (Noop) CreatePolicy(ctx context.Context, policy *retention.Policy) (string, error) {
	return "", nil
}
