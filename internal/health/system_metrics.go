package health

import (
	"runtime"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics is a host resource snapshot gathered through gopsutil.
// Neither the health endpoint nor cam_status replies use it; cam_status
// metrics come only from the embedder's GetMetrics callback.
type SystemMetrics struct {
	CPUUsagePercent  float64   `json:"cpu_usage_percent"`
	MemoryUsedBytes  uint64    `json:"memory_used_bytes"`
	MemoryTotalBytes uint64    `json:"memory_total_bytes"`
	DiskUsagePercent float64   `json:"disk_usage_percent"`
	Goroutines       int       `json:"goroutines"`
	CollectedAt      time.Time `json:"collected_at"`
}

// SystemMetricsCollector samples host resource usage via gopsutil,
// grounded on the teacher's SystemMetricsManager
// (internal/mediamtx/system_metrics_manager.go), generalized from a
// camera-recording-service metrics aggregator to a single-process agent
// metrics sampler.
type SystemMetricsCollector struct {
	statPath string
	logger   *logging.Logger
}

// NewSystemMetricsCollector creates a collector that reports disk usage for
// statPath (typically the timed-storage root).
func NewSystemMetricsCollector(statPath string, logger *logging.Logger) *SystemMetricsCollector {
	if statPath == "" {
		statPath = "/"
	}
	if logger == nil {
		logger = logging.GetLogger("system-metrics")
	}
	return &SystemMetricsCollector{statPath: statPath, logger: logger}
}

// Collect samples current CPU, memory, disk, and goroutine usage.
func (c *SystemMetricsCollector) Collect() SystemMetrics {
	metrics := SystemMetrics{CollectedAt: time.Now(), Goroutines: runtime.NumGoroutine()}

	if percentages, err := cpu.Percent(200*time.Millisecond, false); err != nil {
		c.logger.WithError(err).Warn("failed to sample CPU usage")
	} else if len(percentages) > 0 {
		metrics.CPUUsagePercent = percentages[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		c.logger.WithError(err).Warn("failed to sample memory usage")
	} else {
		metrics.MemoryUsedBytes = vm.Used
		metrics.MemoryTotalBytes = vm.Total
	}

	if usage, err := disk.Usage(c.statPath); err != nil {
		c.logger.WithError(err).Warn("failed to sample disk usage")
	} else if usage.Total > 0 {
		metrics.DiskUsagePercent = float64(usage.Used) / float64(usage.Total) * 100.0
	}

	return metrics
}
