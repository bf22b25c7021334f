package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/resilience"
)

// Client is an HTTP client with auth, TLS and optional retry, circuit
// breaker and rate limiting.
type Client struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	log        *logger.Logger
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config:     cfg,
		log:        logger.Get("httpclient").WithComponent(cfg.Name),
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do sends req, retrying per the client's retry config. On a non-2xx status
// both the response and a classified *Error are returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry == nil {
		return c.doOnce(ctx, req)
	}
	cfg := *c.config.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
			c.log.Warn("http request failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldBackoff, backoff.String(),
				logger.FieldError, err.Error(),
			))
		}
	}
	return resilience.Retry(ctx, cfg, func() (*Response, error) {
		return c.doOnce(ctx, req)
	})
}

// Unwrap returns the underlying *http.Client.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// CircuitState returns the breaker state, or StateClosed when none is set.
func (c *Client) CircuitState() resilience.State {
	if c.cb == nil {
		return resilience.StateClosed
	}
	return c.cb.State()
}

func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.cb == nil {
		return c.send(ctx, req)
	}
	var resp *Response
	err := c.cb.Execute(func() error {
		var sendErr error
		resp, sendErr = c.send(ctx, req)
		return sendErr
	})
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}
	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/")
		if p := strings.TrimLeft(req.Path, "/"); p != "" {
			url += "/" + p
		}
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
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
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.apply(httpReq)
	return httpReq, nil
}

// encodeBody returns the body reader and its default content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
