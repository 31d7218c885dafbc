package monitor

import (
	"context"
	"time"

	"github.com/KNICEX/trader-watcher/internal/schedule"
	"go.uber.org/zap"
)

// minSleep 单轮耗时超过间隔时, 下一轮前至少等待的时间
const minSleep = 100 * time.Millisecond

var _ schedule.Task = (*TraderMonitor)(nil)

// Run 按固定间隔一直轮询, 直到 ctx 取消
// 单轮失败只记录日志; 上一轮所有地址处理完之前不会开始下一轮
func (m *TraderMonitor) Run(ctx context.Context) error {
	interval := m.cfg.PollInterval()
	m.logger.Info("trader monitor started",
		zap.Duration("interval", interval),
		zap.Int("concurrency", m.cfg.Concurrency),
		zap.Duration("lookback", m.cfg.Lookback()))

	for {
		started := time.Now()
		m.tick(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		elapsed := time.Since(started)
		m.metrics.TickDuration.Observe(elapsed.Seconds())

		timer := time.NewTimer(max(minSleep, interval-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *TraderMonitor) tick(ctx context.Context) {
	m.metrics.Ticks.Inc()
	defer func() {
		if r := recover(); r != nil {
			m.metrics.TickFailures.Inc()
			m.logger.Error("monitor tick panic", zap.Any("panic", r))
		}
	}()

	if err := m.PollOnce(ctx); err != nil && ctx.Err() == nil {
		m.metrics.TickFailures.Inc()
		m.logger.Error("monitor tick failed", zap.Error(err))
	}
}

func (m *TraderMonitor) Name() string {
	return "trader monitor task"
}
