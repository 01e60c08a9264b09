package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8080/api"
	defaultTimeout = 10 * time.Second
)

// ErrUnauthorized matches errors returned for HTTP 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource supplies the bearer token attached to each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	// OnUnauthorized runs after any 401 response, before the error is returned.
	OnUnauthorized func(ctx context.Context)
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
}

// Error is a failed API call: either a non-2xx status or an envelope with
// success=false.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// ErrorMessage returns the server-provided message of err, or fallback when err
// carries none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout, Transport: NewTransport(baseURL)}
	}

	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal %s %s request: %w", method, path, err)
	}
	req.body = bytes.NewReader(body)
	req.contentType = "application/json"
	return req, nil
}

// call performs r and decodes the envelope's data into out (when out is non-nil).
// It returns the envelope message.
func (c *Client) call(ctx context.Context, r request, out any) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return "", fmt.Errorf("build %s %s request: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s %s body: %w", r.method, r.path, err)
	}

	var decoded envelope
	decodeErr := json.Unmarshal(respBody, &decoded)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(decoded.Message)
		if decodeErr != nil || message == "" {
			message = strings.TrimSpace(string(respBody))
		}
		if message == "" {
			message = resp.Status
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return "", &Error{StatusCode: resp.StatusCode, Message: message}
	}

	if decodeErr != nil {
		return "", fmt.Errorf("decode %s %s body: %w", r.method, r.path, decodeErr)
	}
	if !decoded.Success {
		message := strings.TrimSpace(decoded.Message)
		if message == "" {
			message = "request was not successful"
		}
		return "", &Error{Message: message}
	}
	if out != nil && len(decoded.Data) > 0 && string(decoded.Data) != "null" {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return "", fmt.Errorf("decode %s %s data: %w", r.method, r.path, err)
		}
	}
	return decoded.Message, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("load bearer token: %w", err)
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// Health reports the server status map returned by GET /health.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if _, err := c.call(ctx, request{method: http.MethodGet, path: "/health"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
