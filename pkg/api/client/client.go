package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the token endpoint used when none is configured.
const DefaultEndpoint = "http://localhost:8000/api/auth/token/"

// Client posts credentials to a token endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d < 0 {
			return
		}
		clone := *c.httpClient
		clone.Timeout = d
		c.httpClient = &clone
	}
}

// New constructs a Client posting to endpoint. The endpoint is used verbatim,
// trailing slash included.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid token endpoint: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid token endpoint: missing host in %q", trimmed)
	}
	cli := &Client{
		endpoint:   trimmed,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// Endpoint reports the URL credentials are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Credentials is the payload of a token request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	return fmt.Sprintf("HTTP error! status: %d: %s", e.Status, e.Message)
}

// ParseError reports a successful response whose body is not JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ObtainToken posts creds as JSON and returns the decoded response body.
// Objects decode to map[string]any.
func (c *Client) ObtainToken(ctx context.Context, creds Credentials) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ParseError{Err: err}
	}
	return v, nil
}

// Token extracts the "token" string from a decoded token response.
func Token(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	token, ok := obj["token"].(string)
	return token, ok
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error          string   `json:"error"`
		Detail         string   `json:"detail"`
		NonFieldErrors []string `json:"non_field_errors"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	switch {
	case payload.Error != "":
		return strings.TrimSpace(payload.Error)
	case payload.Detail != "":
		return strings.TrimSpace(payload.Detail)
	case len(payload.NonFieldErrors) > 0:
		return strings.TrimSpace(strings.Join(payload.NonFieldErrors, "; "))
	}
	return strings.TrimSpace(string(data))
}
