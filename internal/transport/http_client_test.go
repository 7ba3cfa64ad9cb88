package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_PutSendsBodyAndHeaders(t *testing.T) {
	var gotMethod, gotHeader string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Upload-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cfg := &config.TransportConfig{
		HTTPTimeout:           5 * time.Second,
		HTTPRequestsPerSecond: 100,
		HTTPBurst:             10,
	}
	client := NewHTTPClient(cfg, nil)

	resp, err := client.Put(context.Background(), server.URL, map[string]string{"X-Upload-Token": "abc"}, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "abc", gotHeader)
	assert.Equal(t, "payload", string(gotBody))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHTTPClient_RateLimiterBlocksBurst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.TransportConfig{
		HTTPTimeout:           time.Second,
		HTTPRequestsPerSecond: 1,
		HTTPBurst:             1,
	}
	client := NewHTTPClient(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)

	_, err = client.Do(ctx, http.MethodGet, server.URL, nil, nil)
	assert.Error(t, err)
}
