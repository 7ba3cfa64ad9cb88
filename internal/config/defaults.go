package config

import "github.com/spf13/viper"

// applyDefaults sets every default value matching the Config struct in types.go,
// following the teacher's ConfigManager.setDefaults layout: one
// v.SetDefault call per field, grouped by section.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("device.vendor", "unknown")
	v.SetDefault("device.model", "unknown")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.firmware", "0.0.0")
	v.SetDefault("device.type", "ip-camera")

	v.SetDefault("behaviour.secure_channel", true)
	v.SetDefault("behaviour.raw_messaging", false)
	v.SetDefault("behaviour.pre_record", "5s")
	v.SetDefault("behaviour.post_record", "10s")
	v.SetDefault("behaviour.max_concurrent_video_uploads", 2)
	v.SetDefault("behaviour.max_concurrent_snapshot_uploads", 2)
	v.SetDefault("behaviour.max_video_uploads_queue_lateness", "5m")
	v.SetDefault("behaviour.report_continuation_snapshot", false)
	v.SetDefault("behaviour.stateful_event_report_interval", "10s")
	v.SetDefault("behaviour.max_concurrent_storage_items", 2)

	v.SetDefault("token.file_path", "/etc/cloud-agent/token")
	v.SetDefault("token.watch", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file_enabled", false)
	v.SetDefault("logging.file_path", "/var/log/cloud-agent/agent.log")
	v.SetDefault("logging.max_file_size_mb", 50)
	v.SetDefault("logging.backup_count", 5)
	v.SetDefault("logging.console_enabled", true)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.host", "127.0.0.1")
	v.SetDefault("health.port", 9090)

	v.SetDefault("sync.retry_base_delay", "1s")
	v.SetDefault("sync.retry_max_delay", "30s")
	v.SetDefault("sync.retry_max_attempts", 5)
	v.SetDefault("sync.circuit_breaker_failure_threshold", 5)
	v.SetDefault("sync.circuit_breaker_recovery_timeout", "30s")

	v.SetDefault("persistence.file_path", "/var/lib/cloud-agent/state.yaml")

	v.SetDefault("transport.ping_interval", "30s")
	v.SetDefault("transport.pong_wait", "60s")
	v.SetDefault("transport.handshake_timeout", "10s")
	v.SetDefault("transport.max_message_size", 1<<20)
	v.SetDefault("transport.proxy_url", "")
	v.SetDefault("transport.http_timeout", "15s")
	v.SetDefault("transport.http_requests_per_second", 10.0)
	v.SetDefault("transport.http_burst", 20)

	v.SetDefault("registration.timezone", "UTC")
	v.SetDefault("registration.password", "")
	v.SetDefault("registration.reg_token", "")
	v.SetDefault("registration.media_protocols", []string{"rtmp"})
}

// DefaultConfig returns the configuration that would result from loading
// an empty file, used as the baseline for validation and for tests.
func DefaultConfig() *Config {
	v := viper.New()
	applyDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
