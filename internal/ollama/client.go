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
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
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

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled      = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// ModelsUnavailable is the single entry ListModels returns when the model
// list cannot be fetched. It is meant to be shown but not used for requests.
const ModelsUnavailable = "Error fetching models"

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Note: explicit IPv4 avoids localhost resolving to ::1 on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// IdleTimeout aborts a stream that delivers no line for this long (0 = never)
	IdleTimeout time.Duration

	// Logger receives request diagnostics (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:11434",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	// Streams have no overall deadline; they end on done, EOF, ctx or idle timeout.
	streamClient *http.Client
	log          *zap.Logger
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		log:          logger.Named("ollama"),
	}
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels returns the names of the locally available models. It never
// fails: any error is logged and reported as []string{ModelsUnavailable} so
// a model selector can still render something.
func (c *Client) ListModels(ctx context.Context) []string {
	infos, err := c.ListModelInfo(ctx)
	if err != nil {
		c.log.Warn("failed to list models", zap.String("url", c.config.BaseURL), zap.Error(err))
		return []string{ModelsUnavailable}
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// ListModelInfo retrieves all available models with their metadata.
func (c *Client) ListModelInfo(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream opens a streaming chat request and returns an iterator over the
// response. Only the response headers have been read when it returns; each
// call to Next reads one more line. The caller must Close the stream.
//
// Cancelling ctx aborts the request, including a Next blocked on the network.
func (c *Client) ChatStream(ctx context.Context, request ChatRequest) (*ChatStream, error) {
	request.Stream = true

	body, err := json.Marshal(request)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	streamCtx, cancel := context.WithCancel(ctx)

	// SECURITY: plain HTTP is expected; Ollama listens on the loopback interface
	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("opening chat stream",
		zap.String("model", request.Model),
		zap.Int("messages", len(request.Messages)))

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		drainAndClose(resp.Body)
		cancel()
		return nil, ErrModelNotFound
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer drainAndClose(resp.Body)

		var ollamaErr OllamaError
		if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: ollamaErr.Error}
		}
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "stream request failed: " + resp.Status,
		}
	}

	return newChatStream(streamCtx, cancel, resp.Body, c.config.IdleTimeout), nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// classifyTransportError maps an http.Client error onto a ClientError.
func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: ErrCanceled.Message, Cause: err}
	default:
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
}

func isType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool { return isType(err, ErrTypeModelNotFound) }

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool { return isType(err, ErrTypeNotRunning) }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return isType(err, ErrTypeTimeout) }

// IsCanceled checks if an error comes from a cancelled context.
func IsCanceled(err error) bool { return isType(err, ErrTypeCanceled) }

// drainAndClose lets the transport reuse the connection.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

func formatOneDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
