package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"golang.org/x/time/rate"
)

// HTTPResponse is the result of a one-shot HTTP request: status, headers,
// and body, decoupled from *http.Response so callers never need to
// remember to close a body.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPClient is the one-shot request facility of the transport facade
// (spec.md §4.2, used for direct-upload PUT/POST and HTTP-base-URI calls).
// Pacing follows the teacher's rate-limiter idiom
// (internal/security/rate_limiter.go) generalized from command admission
// to outbound HTTP admission, backed by golang.org/x/time/rate exactly as
// that package already is.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewHTTPClient builds a client from the transport configuration.
func NewHTTPClient(cfg *config.TransportConfig, logger *logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.GetLogger("http-client")
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.HTTPRequestsPerSecond), cfg.HTTPBurst),
		logger:  logger,
	}
}

// Do issues method against targetURL with the given headers and body,
// blocking on the rate limiter before dialing out.
func (h *HTTPClient) Do(ctx context.Context, method, targetURL string, headers map[string]string, body []byte) (*HTTPResponse, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("http client: rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return nil, fmt.Errorf("http client: building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client: %s %s: %w", method, targetURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http client: reading response body: %w", err)
	}

	h.logger.WithFields(logging.Fields{
		"method":      method,
		"url":         targetURL,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("http request completed")

	return &HTTPResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Put is a convenience wrapper around Do for direct-upload slots, which
// always use PUT (spec.md §4.9 "Direct upload").
func (h *HTTPClient) Put(ctx context.Context, targetURL string, headers map[string]string, body []byte) (*HTTPResponse, error) {
	return h.Do(ctx, http.MethodPut, targetURL, headers, body)
}
