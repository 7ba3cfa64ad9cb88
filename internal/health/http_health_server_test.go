package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHealthServer_EndpointsDelegateToHealthAPI(t *testing.T) {
	monitor := NewHealthMonitor("test-version")
	cfg := &config.HealthConfig{Enabled: true, Host: "127.0.0.1", Port: 0}
	server, err := NewHTTPHealthServer(cfg, monitor, logging.GetLogger("health-test"))
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BasicEndpoint:
			server.handleBasicHealth(w, r)
		case DetailedEndpoint:
			server.handleDetailedHealth(w, r)
		case ReadyEndpoint:
			server.handleReadiness(w, r)
		case LiveEndpoint:
			server.handleLiveness(w, r)
		}
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + BasicEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + ReadyEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	monitor.UpdateComponentStatus("remote-store", HealthStatusUnhealthy, "no remote configured", nil)

	resp, err = http.Get(ts.URL + ReadyEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(ts.URL + DetailedEndpoint)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "remote-store")
}

func TestNewHTTPHealthServer_RejectsNilDependencies(t *testing.T) {
	logger := logging.GetLogger("health-test")
	cfg := &config.HealthConfig{Enabled: true, Host: "127.0.0.1", Port: 0}

	_, err := NewHTTPHealthServer(nil, NewHealthMonitor("v"), logger)
	assert.Error(t, err)

	_, err = NewHTTPHealthServer(cfg, nil, logger)
	assert.Error(t, err)

	_, err = NewHTTPHealthServer(cfg, NewHealthMonitor("v"), nil)
	assert.Error(t, err)
}

func TestHealthMonitor_OverallStatusReflectsWorstComponent(t *testing.T) {
	monitor := NewHealthMonitor("v")
	resp, err := monitor.GetHealth(nil)
	require.NoError(t, err)
	assert.Equal(t, HealthStatusHealthy, resp.Status)

	monitor.UpdateComponentStatus("a", HealthStatusDegraded, "", nil)
	resp, _ = monitor.GetHealth(nil)
	assert.Equal(t, HealthStatusDegraded, resp.Status)

	monitor.UpdateComponentStatus("b", HealthStatusUnhealthy, "", nil)
	resp, _ = monitor.GetHealth(nil)
	assert.Equal(t, HealthStatusUnhealthy, resp.Status)
}
