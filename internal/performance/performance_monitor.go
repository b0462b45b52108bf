package performance

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks recognition performance across the windows of a run
type Metrics struct {
	TotalWindows        int64
	FailedWindows       int64
	TotalAudioBytes     int64
	TotalProcessingTime time.Duration
	AvgWindowTime       time.Duration
	MinWindowTime       time.Duration
	MaxWindowTime       time.Duration
	LastWindowTime      time.Duration
	LastWindowIndex     int
	LastTimestamp       time.Time
}

// WindowTimer tracks timing for a single window
type WindowTimer struct {
	StartTime      time.Time
	WindowIndex    int
	AudioBytes     int64
	ProcessingTime time.Duration
}

// Monitor accumulates per-window timing metrics and reports run summaries
type Monitor struct {
	logger    *zap.Logger
	metrics   Metrics
	mu        sync.RWMutex
	benchmark bool
}

// NewMonitor creates a new performance monitor
func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		metrics: Metrics{
			MinWindowTime: time.Hour, // Initialize to large value
			LastTimestamp: time.Now(),
		},
	}
}

// NewMonitorWithBenchmark creates a monitor that logs every window timing
func NewMonitorWithBenchmark(logger *zap.Logger, benchmark bool) *Monitor {
	m := NewMonitor(logger)
	m.benchmark = benchmark
	return m
}

// StartWindow begins timing the recognition of one window
func (m *Monitor) StartWindow(windowIndex int, audioBytes int64) *WindowTimer {
	return &WindowTimer{
		StartTime:   time.Now(),
		WindowIndex: windowIndex,
		AudioBytes:  audioBytes,
	}
}

// EndWindow completes timing and folds the window into the metrics
func (m *Monitor) EndWindow(timer *WindowTimer, failed bool) {
	timer.ProcessingTime = time.Since(timer.StartTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.TotalWindows++
	if failed {
		m.metrics.FailedWindows++
	}
	m.metrics.TotalAudioBytes += timer.AudioBytes
	m.metrics.TotalProcessingTime += timer.ProcessingTime
	m.metrics.LastWindowTime = timer.ProcessingTime
	m.metrics.LastWindowIndex = timer.WindowIndex
	m.metrics.LastTimestamp = time.Now()

	if timer.ProcessingTime < m.metrics.MinWindowTime {
		m.metrics.MinWindowTime = timer.ProcessingTime
	}
	if timer.ProcessingTime > m.metrics.MaxWindowTime {
		m.metrics.MaxWindowTime = timer.ProcessingTime
	}

	m.metrics.AvgWindowTime = time.Duration(
		int64(m.metrics.TotalProcessingTime) / m.metrics.TotalWindows,
	)

	if m.benchmark {
		m.logger.Info("window performance",
			zap.Int("window", timer.WindowIndex),
			zap.Bool("failed", failed),
			zap.Int64("audio_bytes", timer.AudioBytes),
			zap.Duration("processing_time", timer.ProcessingTime),
		)
	}
}

// GetMetrics returns a copy of current metrics
func (m *Monitor) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.metrics
}

// Summary returns a formatted summary of the run's performance
func (m *Monitor) Summary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.metrics.TotalWindows == 0 {
		return "No windows processed"
	}

	// 16 kHz mono 16-bit PCM is 32000 bytes per second of audio
	audioSeconds := float64(m.metrics.TotalAudioBytes) / 32000.0
	speed := 0.0
	if m.metrics.TotalProcessingTime > 0 {
		speed = audioSeconds / m.metrics.TotalProcessingTime.Seconds()
	}

	return fmt.Sprintf(
		"Run Summary:\n"+
			"  Windows: %d (%d failed)\n"+
			"  Audio Processed: %.1f s\n"+
			"  Processing Time: %v\n"+
			"  Avg/Min/Max Window Time: %v / %v / %v\n"+
			"  Speed: %.2fx realtime\n",
		m.metrics.TotalWindows,
		m.metrics.FailedWindows,
		audioSeconds,
		m.metrics.TotalProcessingTime,
		m.metrics.AvgWindowTime,
		m.metrics.MinWindowTime,
		m.metrics.MaxWindowTime,
		speed,
	)
}

// Reset clears all accumulated metrics
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics = Metrics{
		MinWindowTime: time.Hour,
		LastTimestamp: time.Now(),
	}
}

// BenchmarkMode enables or disables per-window timing logs
func (m *Monitor) BenchmarkMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.benchmark = enabled
}

// LogMetrics logs the current metrics
func (m *Monitor) LogMetrics() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("recognition performance",
		zap.Int64("total_windows", m.metrics.TotalWindows),
		zap.Int64("failed_windows", m.metrics.FailedWindows),
		zap.Int64("audio_bytes", m.metrics.TotalAudioBytes),
		zap.Duration("avg_window_time", m.metrics.AvgWindowTime),
		zap.Duration("last_window_time", m.metrics.LastWindowTime),
		zap.Int("last_window_index", m.metrics.LastWindowIndex),
	)
}
