package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/coordinator"
)

// SLAChecker re-evaluates open cases.
type SLAChecker interface {
	CheckSLA(ctx context.Context) (coordinator.CheckResult, error)
}

// SLAMonitor calls CheckSLA on a fixed interval until its context is cancelled.
type SLAMonitor struct {
	checker  SLAChecker
	interval time.Duration
	logger   *zap.Logger
}

// NewSLAMonitor creates the monitor. A non-positive interval defaults to five minutes.
func NewSLAMonitor(checker SLAChecker, interval time.Duration, logger *zap.Logger) *SLAMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAMonitor{checker: checker, interval: interval, logger: logger}
}

// Run blocks until ctx is done. The first check runs immediately.
func (m *SLAMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *SLAMonitor) check(ctx context.Context) {
	start := time.Now()
	res, err := m.checker.CheckSLA(ctx)
	if err != nil {
		m.logger.Error("sla check failed", zap.Error(err))
		return
	}
	m.logger.Debug("sla check",
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("executions", len(res.Executions)),
		zap.Duration("duration", time.Since(start)))
}
