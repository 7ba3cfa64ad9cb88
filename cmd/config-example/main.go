package main

import (
	"fmt"
	"log"
	"os"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/sirupsen/logrus"
)

// Prints the effective configuration a real embedder would hand to
// agent.Create, and, if token.watch is enabled, demonstrates the
// rotation watcher firing on a file touch. Useful for checking a
// config.yaml resolves the way an operator expects before wiring it
// into cmd/server.
func main() {
	configPath := "config/default.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	manager, err := config.NewManager(configPath, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg := manager.GetConfig()

	fmt.Println("=== cloud camera agent configuration ===")
	fmt.Printf("Device: %s %s (serial %s, firmware %s, type %s)\n",
		cfg.Device.Vendor, cfg.Device.Model, cfg.Device.Serial, cfg.Device.Firmware, cfg.Device.Type)

	fmt.Printf("\nToken:\n")
	fmt.Printf("  File: %s\n", cfg.Token.FilePath)
	fmt.Printf("  Watch for rotation: %t\n", cfg.Token.Watch)

	fmt.Printf("\nBehaviour:\n")
	fmt.Printf("  Secure channel: %t\n", cfg.Behaviour.SecureChannel)
	fmt.Printf("  Raw messaging: %t\n", cfg.Behaviour.RawMessaging)
	fmt.Printf("  Pre-record: %s\n", cfg.Behaviour.PreRecord)
	fmt.Printf("  Post-record: %s\n", cfg.Behaviour.PostRecord)
	fmt.Printf("  Max concurrent video uploads: %d\n", cfg.Behaviour.MaxConcurrentVideoUploads)
	fmt.Printf("  Max concurrent snapshot uploads: %d\n", cfg.Behaviour.MaxConcurrentSnapshotUploads)
	fmt.Printf("  Max concurrent storage items: %d\n", cfg.Behaviour.MaxConcurrentStorageItems)

	fmt.Printf("\nSync:\n")
	fmt.Printf("  Retry base delay: %s\n", cfg.Sync.RetryBaseDelay)
	fmt.Printf("  Retry max delay: %s\n", cfg.Sync.RetryMaxDelay)
	fmt.Printf("  Retry max attempts: %d\n", cfg.Sync.RetryMaxAttempts)

	fmt.Printf("\nHealth:\n")
	fmt.Printf("  Enabled: %t\n", cfg.Health.Enabled)
	if cfg.Health.Enabled {
		fmt.Printf("  Listen: %s:%d\n", cfg.Health.Host, cfg.Health.Port)
	}

	fmt.Printf("\nLogging:\n")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Console enabled: %t\n", cfg.Logging.ConsoleEnabled)
	fmt.Printf("  File enabled: %t\n", cfg.Logging.FileEnabled)
	if cfg.Logging.FileEnabled {
		fmt.Printf("  File path: %s\n", cfg.Logging.FilePath)
	}

	fmt.Printf("\nRegistration:\n")
	fmt.Printf("  Timezone: %s\n", cfg.Registration.Timezone)
	fmt.Printf("  Media protocols: %v\n", cfg.Registration.MediaProtocols)

	fmt.Println("\n=== configuration loaded successfully ===")

	if err := manager.Close(); err != nil {
		log.Fatalf("failed to close configuration manager: %v", err)
	}
}
