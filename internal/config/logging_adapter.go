package config

import "github.com/camerarecorder/cloud-agent-go/internal/logging"

// ToLoggingConfig converts the agent's logging section into the shape
// internal/logging.SetupLogging expects, following the teacher's
// (since-removed) NewLoggingConfigFromConfig adapter — kept in this package
// rather than internal/logging to avoid a logging->config import cycle.
func (c *LoggingConfig) ToLoggingConfig() *logging.LoggingConfig {
	return &logging.LoggingConfig{
		Level:          c.Level,
		Format:         c.Format,
		FileEnabled:    c.FileEnabled,
		FilePath:       c.FilePath,
		MaxFileSize:    c.MaxFileSizeMB * 1024 * 1024,
		BackupCount:    c.BackupCount,
		ConsoleEnabled: c.ConsoleEnabled,
	}
}
