package httpclient

import (
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// Option configures a Connector.
type Option func(*Connector)

// WithRequestTimeout bounds a whole request including the body read.
// Zero disables the bound, which streaming callers need.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Connector) {
		c.cfg.requestTimeout = timeout
	}
}

// WithConnTimeout bounds the TCP dial.
func WithConnTimeout(timeout time.Duration) Option {
	return func(c *Connector) {
		c.cfg.connTimeout = timeout
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers.
func WithResponseHeaderTimeout(timeout time.Duration) Option {
	return func(c *Connector) {
		c.cfg.responseHeaderTimeout = timeout
	}
}

// WithTransport adds a round tripper decorator.
func WithTransport(transport TransportFunc) Option {
	return func(c *Connector) {
		c.cfg.transports = append(c.cfg.transports, transport)
	}
}

// WithHTTPClient replaces the tuned client entirely. Transport options
// are ignored when set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		c.client = client
	}
}

// WithBearerToken sends "Authorization: Bearer <token>" on every request.
// An empty token sends nothing.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", bearer(token))
}

// WithHeader sends a fixed header on every request. An empty value sends
// nothing.
func WithHeader(key, value string) Option {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{key: key, value: value, transport: rt}
	})
}

// WithRateLimit throttles requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Connector) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry replaces the retry policy. Passing retry.Attempts(1)
// disables retries.
func WithRetry(opts ...retry.Option) Option {
	return func(c *Connector) {
		c.retryOpts = opts
	}
}

// WithRequestLogging logs every outbound request at debug level.
func WithRequestLogging() Option {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{transport: rt}
	})
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
