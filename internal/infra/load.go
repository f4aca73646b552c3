package infra

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// CPUSampler returns overall CPU utilisation in percent over window.
type CPUSampler func(ctx context.Context, window time.Duration) (float64, error)

// LoadMonitor implements domain.LoadDetector: a busy host flips adaptive mode,
// which slows the schedule down.
type LoadMonitor struct {
	threshold float64
	window    time.Duration
	sample    CPUSampler
	logger    *zap.Logger
	adaptive  atomic.Bool
}

// NewLoadMonitor creates a monitor sampling CPU with gopsutil.
func NewLoadMonitor(threshold float64, window time.Duration, logger *zap.Logger) *LoadMonitor {
	return NewLoadMonitorWithSampler(threshold, window, gopsutilSampler, logger)
}

// NewLoadMonitorWithSampler creates a monitor with a custom sampler (for testing).
func NewLoadMonitorWithSampler(threshold float64, window time.Duration, sample CPUSampler, logger *zap.Logger) *LoadMonitor {
	return &LoadMonitor{
		threshold: threshold,
		window:    window,
		sample:    sample,
		logger:    logger,
	}
}

// Scan samples CPU once and updates adaptive mode.
// A sampling failure leaves the mode unchanged.
func (m *LoadMonitor) Scan(ctx context.Context) domain.ScanResult {
	pct, err := m.sample(ctx, m.window)
	if err != nil {
		m.logger.Warn("failed to sample cpu", zap.Error(err))
		return domain.ScanResult{AdaptiveMode: m.adaptive.Load()}
	}

	detected := pct >= m.threshold
	var reasons []string
	if detected {
		reasons = append(reasons, fmt.Sprintf("cpu %.1f%% >= %.1f%%", pct, m.threshold))
	}

	was := m.adaptive.Swap(detected)
	switch {
	case detected && !was:
		m.logger.Info("host busy, switching to adaptive mode", zap.Float64("cpu_percent", pct))
	case !detected && was:
		m.logger.Info("host load normal, leaving adaptive mode", zap.Float64("cpu_percent", pct))
	}

	return domain.ScanResult{
		Detected:     detected,
		Reasons:      reasons,
		AdaptiveMode: detected,
	}
}

// IsAdaptiveMode returns the mode set by the last successful scan.
func (m *LoadMonitor) IsAdaptiveMode() bool {
	return m.adaptive.Load()
}

func gopsutilSampler(ctx context.Context, window time.Duration) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("no cpu samples")
	}
	return pcts[0], nil
}

// Ensure LoadMonitor implements domain.LoadDetector.
var _ domain.LoadDetector = (*LoadMonitor)(nil)
