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

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const (
	defaultAttempts = 3
	defaultDelay    = 200 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
)

// Connector sends JSON requests to one base URL.
type Connector struct {
	baseURL   string
	cfg       *clientConfig
	client    *http.Client
	limiter   *rate.Limiter
	retryOpts []retry.Option
}

// New creates a connector for baseURL.
func New(baseURL string, opts ...Option) *Connector {
	c := &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     defaultClientConfig(),
		retryOpts: []retry.Option{
			retry.Attempts(defaultAttempts),
			retry.Delay(defaultDelay),
			retry.MaxDelay(defaultMaxDelay),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = newClient(c.cfg)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Connector) BaseURL() string {
	return c.baseURL
}

// RequestOpt adjusts a single request.
type RequestOpt func(*http.Request)

// WithRequestHeader sets a header on one request.
func WithRequestHeader(key, value string) RequestOpt {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// DoJSON sends reqBody as JSON and decodes a 2xx response into respBody.
// Either body may be nil. Retryable failures are retried with backoff.
func (c *Connector) DoJSON(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	payload, err := encode(reqBody)
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			data, err := c.do(ctx, method, endpoint, payload, opts)
			if err != nil {
				return err
			}
			if respBody == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, respBody); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		c.retryOptions(ctx)...,
	)
}

// Stream sends reqBody as JSON and returns the open response for the
// caller to read incrementally. Only the connection phase is retried.
// The caller must close the body.
func (c *Connector) Stream(ctx context.Context, method, endpoint string, reqBody any, opts ...RequestOpt) (*http.Response, error) {
	payload, err := encode(reqBody)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	err = retry.Do(
		func() error {
			r, err := c.send(ctx, method, endpoint, payload, opts)
			if err != nil {
				return err
			}
			if r.StatusCode < 200 || r.StatusCode >= 300 {
				defer r.Body.Close()
				return statusError(r)
			}
			resp = r
			return nil
		},
		c.retryOptions(ctx)...,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Connector) do(ctx context.Context, method, endpoint string, payload []byte, opts []RequestOpt) ([]byte, error) {
	resp, err := c.send(ctx, method, endpoint, payload, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}
	return data, nil
}

func (c *Connector) send(ctx context.Context, method, endpoint string, payload []byte, opts []RequestOpt) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

func (c *Connector) retryOptions(ctx context.Context) []retry.Option {
	opts := make([]retry.Option, 0, len(c.retryOpts)+3)
	opts = append(opts, c.retryOpts...)
	return append(opts,
		retry.Context(ctx),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	)
}

func encode(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return data, nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, Body: data}
}
