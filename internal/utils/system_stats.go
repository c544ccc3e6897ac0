package utils

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"facewatch-go/internal/core/processor"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

var (
	lastCPUTime        time.Time
	lastCPUUsage       float64
	cpuUsageMutex      sync.Mutex
	cpuUsageSampleRate = 500 * time.Millisecond
)

// QueueStats is implemented by the sighting dispatcher
type QueueStats interface {
	ActiveJobCount() int
	QueueLength() int
	Dropped() uint64
}

// SystemStats holds host, runtime and pipeline figures
type SystemStats struct {
	NumCPU        int     `json:"num_cpu"`
	GoRoutines    int     `json:"go_routines"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsage   float64 `json:"memory_usage"` // host memory in use, percent
	MemoryAlloc   uint64  `json:"memory_alloc"`
	MemorySys     uint64  `json:"memory_sys"`
	MemoryAllocHR string  `json:"memory_alloc_hr"`

	Pipeline *processor.CounterSnapshot `json:"pipeline,omitempty"`

	ActiveSinkJobs  int    `json:"active_sink_jobs"`
	QueuedSightings int    `json:"queued_sightings"`
	DroppedEvents   uint64 `json:"dropped_sightings"`

	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatBytes renders bytes with a binary unit
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d Bytes", bytes)
	}
}

// GetCPUUsage returns the total CPU usage in percent, cached for 500ms
func GetCPUUsage() float64 {
	cpuUsageMutex.Lock()
	defer cpuUsageMutex.Unlock()

	if !lastCPUTime.IsZero() && time.Since(lastCPUTime) < cpuUsageSampleRate {
		return lastCPUUsage
	}

	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		log.Warnf("Failed to measure CPU usage: %v", err)
		return 0.0
	}

	var usage float64
	if len(percentages) > 0 {
		usage = percentages[0]
	}

	lastCPUTime = time.Now()
	lastCPUUsage = usage
	return usage
}

// GetSystemStats collects the current figures. counters and queue may be nil.
func GetSystemStats(started time.Time, counters *processor.Counters, queue QueueStats) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		NumCPU:        runtime.NumCPU(),
		GoRoutines:    runtime.NumGoroutine(),
		CPUUsage:      GetCPUUsage(),
		MemoryAlloc:   memStats.Alloc,
		MemorySys:     memStats.Sys,
		MemoryAllocHR: FormatBytes(memStats.Alloc),
		Timestamp:     time.Now(),
	}
	if !started.IsZero() {
		stats.Uptime = time.Since(started).Round(time.Second).String()
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsage = vm.UsedPercent
	} else {
		log.Debugf("Failed to read host memory: %v", err)
	}

	if counters != nil {
		snap := counters.Snapshot()
		stats.Pipeline = &snap
	}

	if queue != nil {
		stats.ActiveSinkJobs = queue.ActiveJobCount()
		stats.QueuedSightings = queue.QueueLength()
		stats.DroppedEvents = queue.Dropped()
	}

	return stats
}
