// Package openai implements the image analysis and embedding ports against
// the Azure OpenAI REST API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ruleindex/internal/application/common/slogger"
)

const (
	defaultAPIVersion = "2024-06-01"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3

	retryBaseDelay = 500 * time.Millisecond
)

// ClientConfig holds Azure OpenAI client configuration.
type ClientConfig struct {
	// Endpoint is the resource endpoint, e.g. https://myres.openai.azure.com.
	Endpoint string

	// APIKey authenticates requests via the api-key header.
	APIKey string

	// VisionDeployment is the chat deployment used for image analysis.
	VisionDeployment string

	// EmbeddingDeployment is the deployment used for text embeddings.
	EmbeddingDeployment string

	// APIVersion selects the REST API version.
	APIVersion string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient HTTP failures.
	MaxRetries int
}

// Validate checks the client configuration.
func (c ClientConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint cannot be empty")
	}
	if c.APIKey == "" {
		return errors.New("api key cannot be empty")
	}
	if c.VisionDeployment == "" {
		return errors.New("vision deployment cannot be empty")
	}
	if c.EmbeddingDeployment == "" {
		return errors.New("embedding deployment cannot be empty")
	}
	return nil
}

// Client talks to Azure OpenAI deployments over HTTPS.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Azure OpenAI client with validation and defaults.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid openai configuration: %w", err)
	}

	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaultMaxRetries
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// deploymentURL builds a request URL for one deployment operation, e.g.
// operation "chat/completions" or "embeddings".
func (c *Client) deploymentURL(deployment, operation string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		c.config.Endpoint, deployment, operation, c.config.APIVersion)
}

// postJSON sends a JSON request and decodes the JSON response into out,
// retrying transient failures with exponential backoff.
func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			slogger.Debug(ctx, "Retrying OpenAI request", slogger.Fields{
				"attempt": attempt,
				"url":     url,
			})
		}

		lastErr = c.doPost(ctx, url, body, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryableHTTPError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doPost(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &httpError{statusCode: 0, message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &httpError{
			statusCode: resp.StatusCode,
			message:    truncateBody(respBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// httpError carries the status code so retry classification can see it.
type httpError struct {
	statusCode int
	message    string
}

func (e *httpError) Error() string {
	if e.statusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.message)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.statusCode, e.message)
}

// isRetryableHTTPError reports whether the failure is worth retrying:
// network errors, rate limits and server-side errors.
func isRetryableHTTPError(err error) bool {
	var he *httpError
	if !errors.As(err, &he) {
		return false
	}
	return he.statusCode == 0 ||
		he.statusCode == http.StatusTooManyRequests ||
		he.statusCode >= http.StatusInternalServerError
}

func truncateBody(body []byte) string {
	const maxLen = 512
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
