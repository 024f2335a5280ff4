// Package apiclient talks to the resume backend. Every method issues exactly one HTTP
// request and maps any non-2xx answer to an *errors.AppError carrying a readable message.
package apiclient

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

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseSize bounds how much of a backend body is read into memory.
const maxResponseSize = 32 << 20

// Options configures a Client
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	CircuitBreaker config.CircuitBreakerConfig
	// HTTPClient overrides the instrumented default, mainly for tests.
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Logger     *errors.Logger
}

// Client is a backend API client. The zero token means unauthenticated.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	breaker    *BackendCircuitBreaker
	metrics    *observability.Metrics
	logger     *errors.Logger
}

// New builds a Client
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid backend base URL %q", opts.BaseURL), err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger, _ = errors.New("error")
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		breaker:    NewBackendCircuitBreaker(opts.CircuitBreaker, logger),
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// NewFromConfig builds a Client from the backend section of cfg
func NewFromConfig(cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*Client, error) {
	return New(Options{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		CircuitBreaker: cfg.Backend.CircuitBreaker,
		Metrics:        metrics,
		Logger:         logger,
	})
}

// WithToken returns a copy of c that sends the bearer token on authenticated calls.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// BreakerStats exposes circuit breaker state for health endpoints
func (c *Client) BreakerStats() map[string]any {
	return c.breaker.GetStats()
}

// Healthy reports whether the breaker currently lets calls through
func (c *Client) Healthy() bool {
	return c.breaker.IsHealthy()
}

// operation names a backend call for logs, metrics and default error text.
type operation struct {
	name    string
	failMsg string
	auth    bool
}

// response is a fully read backend reply
type response struct {
	status int
	header http.Header
	body   []byte
}

// request describes one backend call
type request struct {
	method string
	// path holds unescaped segments, e.g. {"resume", id}.
	path   []string
	query  url.Values
	body   any
	accept string
}

// send performs exactly one HTTP round trip and maps failures to AppErrors.
func (c *Client) send(ctx context.Context, op operation, req request) (*response, error) {
	var resp *response

	err := c.metrics.TrackBackendCall(ctx, op.name, func(ctx context.Context) (int, error) {
		return c.breaker.Execute(func() (int, error) {
			var err error
			resp, err = c.roundTrip(ctx, op, req)
			if resp != nil {
				return resp.status, err
			}
			return 0, err
		})
	})
	if err != nil {
		c.logger.LogError(err, "Backend call failed", "operation", op.name)
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, op operation, req request) (*response, error) {
	httpReq, err := c.newRequest(ctx, op, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Calling backend", "operation", op.name, "method", req.method, "path", strings.Join(req.path, "/"))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailure,
			"Unable to reach the resume service. Please check your connection and try again.", err).
			WithContext("operation", op.name)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailure,
			"The connection to the resume service was interrupted.", err).
			WithContext("operation", op.name)
	}

	resp := &response{status: httpResp.StatusCode, header: httpResp.Header, body: body}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, statusError(op, httpResp.StatusCode, body)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, op operation, req request) (*http.Request, error) {
	u := c.endpoint(req.path...)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode request body", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build backend request", err)
	}

	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)

	if op.auth && c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	return httpReq, nil
}

// endpoint appends escaped path segments to the base URL.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return &u
}

// doJSON sends req and decodes a JSON reply into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op operation, req request, out any) error {
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeBody(op, resp.body, out)
}

func decodeBody(op operation, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			op.failMsg+": the server returned an empty response", nil).
			WithContext("operation", op.name)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			op.failMsg+": the server returned an unexpected response", err).
			WithContext("operation", op.name)
	}
	return nil
}

// statusError builds the typed failure for a non-2xx reply
func statusError(op operation, status int, body []byte) error {
	message := extractErrorMessage(body)
	if message == "" {
		message = op.failMsg
	}

	code := errors.ErrCodeBackendStatus
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = errors.ErrCodeUnauthorized
	case http.StatusNotFound:
		code = errors.ErrCodeNotFound
	}

	return errors.NewBackendError(code, message, status).WithContext("operation", op.name)
}

// extractErrorMessage reads {"error": ...}, {"message": ...} or FastAPI's {"detail": ...}.
func extractErrorMessage(body []byte) string {
	var payload struct {
		Error   any `json:"error"`
		Message any `json:"message"`
		Detail  any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, candidate := range []any{payload.Error, payload.Detail, payload.Message} {
		if msg := messageFrom(candidate); msg != "" {
			return msg
		}
	}
	return ""
}

func messageFrom(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		// FastAPI validation errors: [{"msg": "...", ...}]
		var parts []string
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok && msg != "" {
					parts = append(parts, msg)
				}
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if msg, ok := val["message"].(string); ok {
			return msg
		}
	}
	return ""
}

// requireID rejects empty identifiers before any request is made.
func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingField, field+" is required", nil).
			WithContext("field", field)
	}
	return nil
}
