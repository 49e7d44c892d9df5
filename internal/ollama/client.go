// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/jeeves/internal/offline"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the daemon client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any *ClientError of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeBlocked
)

// Sentinel errors for errors.Is checks.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrBlocked       = &ClientError{Type: ErrTypeBlocked, Message: "daemon address not allowed"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL uses the explicit IPv4 loopback to avoid IPv6 resolution
// surprises on some hosts.
const DefaultBaseURL = "http://127.0.0.1:11434"

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	// BaseURL is the daemon base URL (default: http://127.0.0.1:11434).
	BaseURL string

	// Timeout for non-streaming requests (default: 60s).
	Timeout time.Duration

	// RequestsPerSecond caps calls into the daemon (default: 4). Burst is
	// the bucket size (default: 2).
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           60 * time.Second,
		RequestsPerSecond: 4,
		Burst:             2,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the local daemon. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client, filling zero config values with defaults.
func NewClient(config ClientConfig) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}
}

// BaseURL returns the configured daemon address.
func (c *Client) BaseURL() string { return c.config.BaseURL }

// do validates the address, waits for the limiter and sends the request.
// streaming requests use a client without a timeout; ctx bounds them.
func (c *Client) do(ctx context.Context, method, path string, body any, streaming bool) (*http.Response, error) {
	if err := offline.ValidateURL(c.config.BaseURL); err != nil {
		return nil, &ClientError{Type: ErrTypeBlocked, Message: "daemon address not allowed", Cause: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ClientError{Type: ErrTypeTimeout, Message: "rate limiter", Cause: err}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.httpClient
	if streaming {
		hc = &http.Client{}
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeNotRunning, Message: "ollama is not running", Cause: err}
	}
	return resp, nil
}

// checkStatus converts a non-200 response into a ClientError and closes it.
func checkStatus(resp *http.Response, what string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: what + " failed: " + resp.Status}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that the daemon is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil, false)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		return &ClientError{Type: ErrTypeConnection, Message: "unexpected status from ollama: " + resp.Status}
	}
	drainAndClose(resp.Body)
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally pulled models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil, false)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "list models"); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// ShowModel retrieves information about a specific model.
func (c *Client) ShowModel(ctx context.Context, name string) (*ShowModelResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/show", ShowModelRequest{Name: name}, false)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "show model"); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ShowModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// ModelExists reports whether name is pulled locally. Errors other than
// "not found" are returned as is.
func (c *Client) ModelExists(ctx context.Context, name string) (bool, error) {
	_, err := c.ShowModel(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case IsModelNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends a non-streaming generate request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	resp, err := c.do(ctx, http.MethodPost, "/api/generate", req, false)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "generate"); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: result.Error}
	}
	return &result, nil
}

// StreamCallback is called for each object of a streaming response.
type StreamCallback func(chunk GenerateResponse)

// GenerateStream sends a streaming generate request and calls callback for
// each line in order. It returns when the final object arrives, the body
// ends or ctx is done.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, callback StreamCallback) error {
	req.Stream = true
	resp, err := c.do(ctx, http.MethodPost, "/api/generate", req, true)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "generate"); err != nil {
		return err
	}
	defer resp.Body.Close()

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool { return errors.Is(err, ErrModelNotFound) }

// IsNotRunning checks if an error indicates the daemon is not running.
func IsNotRunning(err error) bool { return errors.Is(err, ErrNotRunning) }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, r)
	r.Close()
}
