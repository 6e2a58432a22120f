package httpclient

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/logger"
)

type headerTransport struct {
	key       string
	value     string
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value == "" || req.Header.Get(t.key) != "" {
		return t.transport.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(t.key, t.value)
	return t.transport.RoundTrip(clone)
}

type logTransport struct {
	transport http.RoundTripper
}

// RoundTrip logs method and URL. Headers are left out since they carry
// credentials.
func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	log := logger.FromContext(req.Context())
	log.Debug("HTTP outbound request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		log.Debug("HTTP request failed", zap.String("url", req.URL.Redacted()), zap.Error(err))
		return nil, err
	}
	log.Debug("HTTP response", zap.String("url", req.URL.Redacted()), zap.Int("status", resp.StatusCode))
	return resp, nil
}
