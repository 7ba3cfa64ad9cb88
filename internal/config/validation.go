package config

import "fmt"

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
}

var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks field-level invariants, following the teacher's
// ConfigManager.validateConfig idiom of one check per offending field.
func Validate(c *Config) error {
	if c.Device.Vendor == "" {
		return fmt.Errorf("device.vendor must not be empty")
	}
	if c.Device.Model == "" {
		return fmt.Errorf("device.model must not be empty")
	}

	if c.Behaviour.PreRecord < 0 {
		return fmt.Errorf("behaviour.pre_record must not be negative")
	}
	if c.Behaviour.PostRecord < 0 {
		return fmt.Errorf("behaviour.post_record must not be negative")
	}
	if c.Behaviour.MaxConcurrentVideoUploads <= 0 {
		return fmt.Errorf("behaviour.max_concurrent_video_uploads must be positive")
	}
	if c.Behaviour.MaxConcurrentSnapshotUploads <= 0 {
		return fmt.Errorf("behaviour.max_concurrent_snapshot_uploads must be positive")
	}
	if c.Behaviour.MaxConcurrentStorageItems <= 0 {
		return fmt.Errorf("behaviour.max_concurrent_storage_items must be positive")
	}
	if c.Behaviour.MaxVideoUploadsQueueLateness < 0 {
		return fmt.Errorf("behaviour.max_video_uploads_queue_lateness must not be negative")
	}
	if c.Behaviour.StatefulEventReportInterval <= 0 {
		return fmt.Errorf("behaviour.stateful_event_report_interval must be positive")
	}

	if c.Token.FilePath == "" {
		return fmt.Errorf("token.file_path must not be empty")
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format %q must be 'text' or 'json'", c.Logging.Format)
	}
	if c.Logging.FileEnabled {
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging.file_path must not be empty when logging.file_enabled is true")
		}
		if c.Logging.MaxFileSizeMB <= 0 {
			return fmt.Errorf("logging.max_file_size_mb must be positive")
		}
		if c.Logging.BackupCount < 0 {
			return fmt.Errorf("logging.backup_count must not be negative")
		}
	}

	if c.Health.Enabled && c.Health.Port <= 0 {
		return fmt.Errorf("health.port must be positive when health.enabled is true")
	}

	if c.Sync.RetryBaseDelay <= 0 {
		return fmt.Errorf("sync.retry_base_delay must be positive")
	}
	if c.Sync.RetryMaxDelay < c.Sync.RetryBaseDelay {
		return fmt.Errorf("sync.retry_max_delay must not be less than sync.retry_base_delay")
	}
	if c.Sync.RetryMaxAttempts <= 0 {
		return fmt.Errorf("sync.retry_max_attempts must be positive")
	}
	if c.Sync.CircuitBreakerFailureThreshold <= 0 {
		return fmt.Errorf("sync.circuit_breaker_failure_threshold must be positive")
	}
	if c.Sync.CircuitBreakerRecoveryTimeout <= 0 {
		return fmt.Errorf("sync.circuit_breaker_recovery_timeout must be positive")
	}

	if c.Persistence.FilePath == "" {
		return fmt.Errorf("persistence.file_path must not be empty")
	}

	if c.Transport.PingInterval <= 0 {
		return fmt.Errorf("transport.ping_interval must be positive")
	}
	if c.Transport.PongWait <= c.Transport.PingInterval {
		return fmt.Errorf("transport.pong_wait must exceed transport.ping_interval")
	}
	if c.Transport.HandshakeTimeout <= 0 {
		return fmt.Errorf("transport.handshake_timeout must be positive")
	}
	if c.Transport.MaxMessageSize <= 0 {
		return fmt.Errorf("transport.max_message_size must be positive")
	}
	if c.Transport.HTTPTimeout <= 0 {
		return fmt.Errorf("transport.http_timeout must be positive")
	}
	if c.Transport.HTTPRequestsPerSecond <= 0 {
		return fmt.Errorf("transport.http_requests_per_second must be positive")
	}
	if c.Transport.HTTPBurst <= 0 {
		return fmt.Errorf("transport.http_burst must be positive")
	}

	return nil
}
