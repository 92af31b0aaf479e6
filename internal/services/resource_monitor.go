package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// ResourceStats captures host utilization at a point in time.
type ResourceStats struct {
	Timestamp          time.Time `json:"timestamp"`
	CPUUsagePercent    float64   `json:"cpu_usage_percent"`
	MemoryUsagePercent float64   `json:"memory_usage_percent"`
	MemoryUsedMB       float64   `json:"memory_used_mb"`
	Goroutines         int       `json:"goroutines"`
}

// ResourceMonitor samples host CPU and memory on a fixed interval. The
// health endpoint reads the latest sample; sustained pressure is logged
// so operators notice before the monitor loop starts missing polls.
type ResourceMonitor struct {
	mu         sync.RWMutex
	interval   time.Duration
	history    []ResourceStats
	maxHistory int
	logger     *logrus.Logger
	cancel     context.CancelFunc
	done       chan struct{}

	cpuWarnThreshold float64
	memWarnThreshold float64

	sampleFn func() (ResourceStats, error)
}

// NewResourceMonitor creates a monitor sampling at the given interval.
func NewResourceMonitor(interval time.Duration, logger *logrus.Logger) *ResourceMonitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	rm := &ResourceMonitor{
		interval:         interval,
		maxHistory:       120,
		logger:           logger,
		cpuWarnThreshold: 85.0,
		memWarnThreshold: 90.0,
	}
	rm.sampleFn = rm.sampleHost
	return rm
}

func (rm *ResourceMonitor) sampleHost() (ResourceStats, error) {
	stats := ResourceStats{
		Timestamp:  time.Now().UTC(),
		Goroutines: runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUUsagePercent = percents[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return stats, err
	}
	stats.MemoryUsagePercent = memInfo.UsedPercent
	stats.MemoryUsedMB = float64(memInfo.Used) / (1024 * 1024)

	return stats, nil
}

// Start launches the sampling loop. Stop or context cancellation ends it.
func (rm *ResourceMonitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	rm.mu.Lock()
	rm.cancel = cancel
	rm.done = make(chan struct{})
	done := rm.done
	rm.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(rm.interval)
		defer ticker.Stop()

		rm.sampleOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rm.sampleOnce()
			}
		}
	}()
}

// Stop ends the sampling loop and waits for it to exit.
func (rm *ResourceMonitor) Stop() {
	rm.mu.Lock()
	cancel := rm.cancel
	done := rm.done
	rm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (rm *ResourceMonitor) sampleOnce() {
	stats, err := rm.sampleFn()
	if err != nil {
		rm.logger.WithError(err).Warn("Failed to sample host resources")
		return
	}

	rm.mu.Lock()
	rm.history = append(rm.history, stats)
	if len(rm.history) > rm.maxHistory {
		rm.history = rm.history[len(rm.history)-rm.maxHistory:]
	}
	rm.mu.Unlock()

	if stats.CPUUsagePercent > rm.cpuWarnThreshold {
		rm.logger.WithField("cpu_percent", stats.CPUUsagePercent).Warn("CPU usage above threshold")
	}
	if stats.MemoryUsagePercent > rm.memWarnThreshold {
		rm.logger.WithField("memory_percent", stats.MemoryUsagePercent).Warn("Memory usage above threshold")
	}
}

// Current returns the most recent sample.
func (rm *ResourceMonitor) Current() (ResourceStats, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if len(rm.history) == 0 {
		return ResourceStats{}, false
	}
	return rm.history[len(rm.history)-1], true
}

// History returns a copy of the retained samples, oldest first.
func (rm *ResourceMonitor) History() []ResourceStats {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]ResourceStats, len(rm.history))
	copy(out, rm.history)
	return out
}
