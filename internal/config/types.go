// Package config loads and validates the agent's process-lifetime
// configuration: device descriptors, behavioural knobs, and the
// local diagnostics surface (health endpoint, logging).
package config

import "time"

// Config is the complete agent configuration (spec.md §3 "Agent
// configuration"), plus the ambient sections (logging, health, sync).
type Config struct {
	Device       DeviceConfig       `mapstructure:"device"`
	Behaviour    BehaviourConfig    `mapstructure:"behaviour"`
	Token        TokenConfig        `mapstructure:"token"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Health       HealthConfig       `mapstructure:"health"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Persistence  PersistenceConfig  `mapstructure:"persistence"`
	Transport    TransportConfig    `mapstructure:"transport"`
	Registration RegistrationConfig `mapstructure:"registration"`
}

// DeviceConfig describes the camera device identity announced in
// cam_register (spec.md §6).
type DeviceConfig struct {
	Vendor   string `mapstructure:"vendor"`
	Model    string `mapstructure:"model"`
	Serial   string `mapstructure:"serial"`
	Firmware string `mapstructure:"firmware"`
	Type     string `mapstructure:"type"`
}

// BehaviourConfig holds the behavioural knobs enumerated in spec.md §3.
type BehaviourConfig struct {
	SecureChannel                bool          `mapstructure:"secure_channel"`
	RawMessaging                 bool          `mapstructure:"raw_messaging"`
	PreRecord                    time.Duration `mapstructure:"pre_record"`
	PostRecord                   time.Duration `mapstructure:"post_record"`
	MaxConcurrentVideoUploads    int           `mapstructure:"max_concurrent_video_uploads"`
	MaxConcurrentSnapshotUploads int           `mapstructure:"max_concurrent_snapshot_uploads"`
	MaxVideoUploadsQueueLateness time.Duration `mapstructure:"max_video_uploads_queue_lateness"`
	ReportContinuationSnapshot   bool          `mapstructure:"report_continuation_snapshot"`
	StatefulEventReportInterval  time.Duration `mapstructure:"stateful_event_report_interval"`
	MaxConcurrentStorageItems   int           `mapstructure:"max_concurrent_storage_items"`
}

// TokenConfig points at the access-token material (spec.md §3 "Access
// token"); the token itself is parsed once by internal/security and never
// mutated afterward.
type TokenConfig struct {
	FilePath string `mapstructure:"file_path"`
	Watch    bool   `mapstructure:"watch"`
}

// LoggingConfig mirrors the teacher's logging configuration shape.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	FileEnabled    bool   `mapstructure:"file_enabled"`
	FilePath       string `mapstructure:"file_path"`
	MaxFileSizeMB  int    `mapstructure:"max_file_size_mb"`
	BackupCount    int    `mapstructure:"backup_count"`
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
}

// HealthConfig controls the local diagnostics HTTP endpoint (SPEC_FULL A3).
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// SyncConfig tunes the timeline synchronizer (C8).
type SyncConfig struct {
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	CircuitBreakerFailureThreshold int           `mapstructure:"circuit_breaker_failure_threshold"`
	CircuitBreakerRecoveryTimeout  time.Duration `mapstructure:"circuit_breaker_recovery_timeout"`
}

// PersistenceConfig locates the key-value store used for prev_sid
// (spec.md §6 "Persisted state").
type PersistenceConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// RegistrationConfig holds the one-time registration fields spec.md §4.3
// lists alongside device identity (`register{..., pwd, reg_token,
// media_protocols}`): a device credential, an optional registration
// token issued out-of-band, the local timezone name, and the media
// transport protocols this agent can produce.
type RegistrationConfig struct {
	Timezone       string   `mapstructure:"timezone"`
	Password       string   `mapstructure:"password"`
	RegToken       string   `mapstructure:"reg_token"`
	MediaProtocols []string `mapstructure:"media_protocols"`
}

// TransportConfig tunes the control channel and HTTP client (C2), mirroring
// the teacher's WebSocket ServerConfig knobs (ping/pong/message-size)
// inverted to a client dialer, plus an optional SOCKS5 proxy (a socks4://
// ProxyURL is rejected when dialing) and a
// request-pacing rate limit for the HTTP client.
type TransportConfig struct {
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	ProxyURL          string        `mapstructure:"proxy_url"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	HTTPRequestsPerSecond float64   `mapstructure:"http_requests_per_second"`
	HTTPBurst         int           `mapstructure:"http_burst"`
}

// String returns a short debugging representation, following the
// teacher's Config.String() idiom.
func (c *Config) String() string {
	return "Config{device=" + c.Device.Vendor + " " + c.Device.Model +
		", secure=" + boolStr(c.Behaviour.SecureChannel) + "}"
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
