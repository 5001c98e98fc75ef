package httpclient

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/navislabs/navis/logger"
	"github.com/navislabs/navis/observability"
	"github.com/navislabs/navis/resilience"
)

// Client executes logical HTTP operations against a single target base URL,
// producing a decoded response or a classified error. It owns its circuit
// breaker and retry policy; both are fixed at construction.
type Client struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	bh         *resilience.Bulkhead
	log        *logger.Logger
	metrics    *observability.ClientMetrics
	tracer     trace.Tracer
}

// Option customizes a client beyond its Config.
type Option func(*Client)

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l.WithComponent("httpclient")
	}
}

// WithMetrics records request, retry, and breaker metrics.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer wraps every attempt in a client span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New creates a new service client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("httpclient")
	}

	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.Name == "" {
			cbCfg.Name = cfg.BaseURL
		}
		if cbCfg.OnStateChange == nil {
			cbCfg.OnStateChange = c.onBreakerStateChange
		}
		c.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		c.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}

	return c, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodDelete, path, nil, opts...)
}

// Do executes an HTTP request under the client's retry policy.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if c.config.Retry == nil {
		return c.doOnce(ctx, req)
	}

	retryCfg := *c.config.Retry
	if retryCfg.RetryIf == nil {
		retryCfg.RetryIf = DefaultRetryIf
	}
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			c.metrics.RecordRetry(ctx, c.config.BaseURL)
			c.log.Debug("retrying request", logger.Fields(
				"method", req.Method,
				"path", req.Path,
				logger.FieldAttempt, attempt,
				"delay_ms", delay.Milliseconds(),
				logger.FieldError, err.Error(),
			))
		}
	}

	return resilience.Retry(ctx, retryCfg, func() (*Response, error) {
		return c.doOnce(ctx, req)
	})
}

// BreakerSnapshot returns the breaker state, or false when breaking is
// disabled.
func (c *Client) BreakerSnapshot() (resilience.Snapshot, bool) {
	if c.cb == nil {
		return resilience.Snapshot{}, false
	}
	return c.cb.Snapshot(), true
}

// ResetBreaker returns the breaker to closed with counters zeroed.
func (c *Client) ResetBreaker() {
	if c.cb != nil {
		c.cb.Reset()
	}
}

// BaseURL returns the target base URL the client is bound to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

func (c *Client) verb(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return c.Do(ctx, req)
}

// doOnce runs a single admission-gated attempt: rate limit, breaker check,
// HTTP exchange, classification, then breaker recording. Recording happens
// here so the retry driver observes updated counters before it sleeps.
func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, NewCancelledError(err)
		}
	}

	if c.bh == nil {
		return c.attempt(ctx, req)
	}

	var resp *Response
	var attemptErr error
	if err := c.bh.Execute(ctx, func() error {
		resp, attemptErr = c.attempt(ctx, req)
		return nil
	}); err != nil {
		return nil, err
	}
	return resp, attemptErr
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.cb != nil && !c.cb.CanAttempt() {
		snap := c.cb.Snapshot()
		c.log.Debug("request rejected by circuit breaker", logger.Fields(
			"method", req.Method,
			"path", req.Path,
			"state", snap.State.String(),
		))
		return nil, NewCircuitOpenError(snap)
	}

	start := time.Now()
	resp, err := c.executeRequest(ctx, req)

	if c.cb != nil && !IsCancelled(err) {
		if err != nil {
			c.cb.RecordFailure()
		} else {
			c.cb.RecordSuccess()
		}
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	outcome := "success"
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			outcome = e.Kind.String()
		} else {
			outcome = "error"
		}
	}
	c.metrics.RecordRequest(ctx, req.Method, status, outcome, time.Since(start))

	return resp, err
}

// executeRequest builds and sends one HTTP request and classifies the result.
func (c *Client) executeRequest(ctx context.Context, req Request) (*Response, error) {
	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if c.tracer != nil {
		var span trace.Span
		attemptCtx, span = c.tracer.Start(attemptCtx, req.Method+" "+req.Path,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.path", req.Path),
			),
		)
		defer span.End()
		resp, err := c.exchange(attemptCtx, ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		}
		return resp, err
	}

	return c.exchange(attemptCtx, ctx, req)
}

// exchange performs the wire exchange. callerCtx distinguishes external
// cancellation from this attempt's own timeout.
func (c *Client) exchange(ctx, callerCtx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if callerCtx.Err() != nil {
			return nil, NewCancelledError(callerCtx.Err())
		}
		return nil, NewTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if callerCtx.Err() != nil {
			return nil, NewCancelledError(callerCtx.Err())
		}
		return nil, NewTransportError(fmt.Errorf("read response body: %w", err))
	}

	headers := flattenHeaders(resp.Header)

	if resp.StatusCode >= 400 {
		return nil, NewHTTPError(resp.StatusCode, headers, body)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
	}

	if len(body) == 0 {
		result.Data = map[string]any{}
		return result, nil
	}

	if ct := resp.Header.Get("Content-Type"); ct == "" || strings.Contains(ct, "application/json") {
		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, NewDecodeError(resp.StatusCode, headers, body, err)
		}
		result.Data = data
	} else {
		result.Data = string(body)
	}

	return result, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	var bodyReader io.Reader
	hasBody := req.Body != nil
	if hasBody {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewTransportError(fmt.Errorf("encode request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("create request: %w", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if hasBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}

	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if err := auth.apply(httpReq); err != nil {
		return nil, NewTransportError(err)
	}

	return httpReq, nil
}

func (c *Client) onBreakerStateChange(name string, from, to resilience.State) {
	c.metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
	c.log.Warn("circuit breaker state change", logger.Fields(
		"breaker", name,
		"from", from.String(),
		"to", to.String(),
	))
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
