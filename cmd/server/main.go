// Package main implements the cloud camera agent's reference entry point.
//
// This binary wires the library packages (internal/agent and its
// dependents) into a runnable process: load configuration, read the
// access token, build an Agent with a Callbacks implementation, connect
// to the cloud, and serve local diagnostics until a shutdown signal
// arrives. A real embedder supplies its own Callbacks backed by actual
// camera hardware; this composition root uses a no-op implementation so
// the wiring can run standalone.
//
// Architecture follows the layered approach:
//   - Foundation: configuration and logging
//   - Core: the agent façade (protocol engine, stream/event managers,
//     timed storage, timeline synchronizer)
//   - Diagnostics: local HTTP health/readiness endpoint
//
// Graceful shutdown reverses the startup order to ensure clean resource
// cleanup.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/agent"
	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/health"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/sirupsen/logrus"
)

const defaultShutdownTimeout = 30 * time.Second

// main implements the application entry point following the progressive
// readiness pattern: the health endpoint answers immediately while the
// agent's own connect/reconnect cycle proceeds in the background.
func main() {
	// Foundation - load and validate configuration.
	configPath := os.Getenv("CLOUDAGENT_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/default.yaml"
	}

	bootstrapLog := logrus.NewEntry(logrus.StandardLogger())
	configManager, err := config.NewManager(configPath, bootstrapLog)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg := configManager.GetConfig()

	// Initialize structured logging with the loaded configuration.
	if err := logging.SetupLogging(cfg.Logging.ToLoggingConfig()); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	logger := logging.GetLogger("agent")
	logger.Info("starting cloud camera agent")

	accessToken, err := os.ReadFile(cfg.Token.FilePath)
	if err != nil {
		logger.WithFields(logging.Fields{"error": err, "path": cfg.Token.FilePath}).Fatal("failed to read access token file")
	}

	// Core - build the agent with a no-op media/backend implementation.
	// A real embedder replaces noopCallbacks() with one backed by actual
	// camera hardware, and mediaStreams with its real stream descriptors.
	a, err := agent.Create(
		cfg,
		noopCallbacks(),
		string(accessToken),
		nil, // mediaStreams: supplied by the embedder
		nil, // eventSources: supplied by the embedder
		nil, // remote timeline store: disabled until wired to a cloud REST client
		nil, // storage backend: disabled until wired to local media storage
		logger,
	)
	if err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("failed to create agent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Fatal("failed to start agent")
	}
	logger.Info("agent connected")

	if err := configManager.WatchTokenFile(func() {
		raw, err := os.ReadFile(cfg.Token.FilePath)
		if err != nil {
			logger.WithFields(logging.Fields{"error": err}).Warn("failed to read rotated access token file")
			return
		}
		if err := a.RotateToken(ctx, string(raw)); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Error("failed to rotate access token")
		}
	}); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Warn("failed to start access token watcher")
	}

	// Diagnostics - local HTTP health/readiness endpoint.
	var httpHealthServer *health.HTTPHealthServer
	if cfg.Health.Enabled {
		healthMonitor := health.NewHealthMonitor("1.0.0")
		httpHealthServer, err = health.NewHTTPHealthServer(&cfg.Health, healthMonitor, logger)
		if err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("failed to create health server")
		}
		if err := httpHealthServer.Start(ctx); err != nil {
			logger.WithFields(logging.Fields{"error": err}).Fatal("failed to start health server")
		}
		logger.Info("health server started")
	}

	logger.Info("cloud camera agent started successfully")

	// Graceful shutdown - wait for a termination signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer shutdownCancel()

	var wg sync.WaitGroup
	errorChan := make(chan error, 2)

	if httpHealthServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpHealthServer.Stop(); err != nil {
				logger.WithFields(logging.Fields{"error": err}).Error("error stopping health server")
				errorChan <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Stop()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all services stopped cleanly")
	case <-shutdownCtx.Done():
		logger.Error("shutdown timeout - forcing exit")
		os.Exit(1)
	}

	close(errorChan)
	var failures int
	for range errorChan {
		failures++
	}
	if failures > 0 {
		logger.WithFields(logging.Fields{"error_count": failures}).Error("some services failed to stop cleanly")
	}

	logger.Info("cloud camera agent stopped")
}
