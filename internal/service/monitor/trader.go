package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/trader-watcher/internal/config"
	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TraderMonitor 轮询所有被订阅地址, 对比游标产生事件并通知订阅者
type TraderMonitor struct {
	cfg        config.MonitorConfig
	repo       repo.TraderRepo
	accountSvc exchange.AccountService
	formatter  Formatter
	notifier   Notifier
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) Deliver(ctx context.Context, traderId int64, text string, category string) error {
	n.logger.Info("trader event", zap.Int64("trader_id", traderId), zap.String("category", category), zap.String("text", text))
	return nil
}

type Option func(m *TraderMonitor)

func WithNotifier(notifier Notifier) Option {
	return func(m *TraderMonitor) {
		m.notifier = notifier
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *TraderMonitor) {
		m.metrics = metrics
	}
}

// WithClock 替换取当前时间的函数, 决定拉取窗口的终点和写入的水位
func WithClock(now func() time.Time) Option {
	return func(m *TraderMonitor) {
		m.now = now
	}
}

func NewTraderMonitor(cfg config.MonitorConfig, traderRepo repo.TraderRepo, accountSvc exchange.AccountService,
	formatter Formatter, logger *zap.Logger, opts ...Option) *TraderMonitor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = config.DefaultConcurrency
	}
	if cfg.LookbackMs <= 0 {
		cfg.LookbackMs = config.DefaultLookbackMs
	}

	logger = logger.Named("trader_monitor")
	m := &TraderMonitor{
		cfg:        cfg,
		repo:       traderRepo,
		accountSvc: accountSvc,
		formatter:  formatter,
		notifier:   logNotifier{logger: logger},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// PollOnce 一轮轮询: 列出地址, 有界并发处理, 等全部结束后返回
// 单个地址失败只记录日志, 不影响其它地址
func (m *TraderMonitor) PollOnce(ctx context.Context) error {
	accounts, err := m.repo.ListMonitored(ctx)
	if err != nil {
		return fmt.Errorf("list monitored traders: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			m.pollSafely(ctx, account)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (m *TraderMonitor) pollSafely(ctx context.Context, account repo.Account) {
	m.metrics.InFlight.Inc()
	defer m.metrics.InFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			m.metrics.Polls.WithLabelValues(pollResultError).Inc()
			m.logger.Error("poll trader panic", zap.String("address", account.Address), zap.Any("panic", r))
		}
	}()

	res, err := m.PollTrader(ctx, account)
	if err != nil {
		m.metrics.Polls.WithLabelValues(pollResultError).Inc()
		m.logger.Warn("poll trader failed", zap.Int64("trader_id", account.Id),
			zap.String("address", account.Address), zap.Error(err))
		return
	}
	if res.Bootstrap {
		m.metrics.Polls.WithLabelValues(pollResultBootstrap).Inc()
		m.logger.Info("trader bootstrapped", zap.String("address", account.Address),
			zap.Int("suppressed_events", res.EventCount()))
		return
	}
	m.metrics.Polls.WithLabelValues(pollResultOk).Inc()
}

// PollTrader 处理单个地址: 拉取 -> 分类 -> 写游标 -> 通知
// 任何拉取或写入失败都不会修改游标, 也不会发出通知, 下一轮自然重试
func (m *TraderMonitor) PollTrader(ctx context.Context, account repo.Account) (PollResult, error) {
	cursor, err := m.repo.LoadCursor(ctx, account.Id)
	if err != nil {
		return PollResult{}, fmt.Errorf("load cursor: %w", err)
	}
	// 首次观测只记录状态不通知, 必须在拉取之前判断
	bootstrap := cursor.Empty()

	snapshot, err := m.accountSvc.GetAccountSnapshot(ctx, account.Address)
	if err != nil {
		return PollResult{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	positions := snapshot.Positions
	if positions == nil {
		positions = map[string]exchange.Position{}
	}

	now := m.now()
	nowMs := now.UnixMilli()

	fills, err := m.accountSvc.GetFills(ctx, account.Address, m.windowStart(cursor.LastFillsMs, now), now)
	if err != nil {
		return PollResult{}, fmt.Errorf("fetch fills: %w", err)
	}
	realized := AggregateRealizedPnl(fills)

	updates, err := m.accountSvc.GetLedgerUpdates(ctx, account.Address, m.windowStart(cursor.LastLedgerMs, now), now)
	if err != nil {
		return PollResult{}, fmt.Errorf("fetch ledger updates: %w", err)
	}

	res := PollResult{
		Bootstrap: bootstrap,
		Positions: DiffPositions(account.Address, cursor.Positions, positions, realized),
		Ledger:    ClassifyLedgerUpdates(account.Address, updates),
	}

	err = m.repo.SaveCursor(ctx, account.Id, repo.Cursor{
		Positions:        positions,
		LastLedgerMs:     &nowMs,
		LastFillsMs:      &nowMs,
		LastAccountValue: snapshot.AccountValue,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("save cursor: %w", err)
	}

	if bootstrap {
		return res, nil
	}
	m.dispatch(ctx, account, res)
	return res, nil
}

// windowStart 水位之后 1ms 开始, 水位为空时回看 lookback
func (m *TraderMonitor) windowStart(watermark *int64, now time.Time) time.Time {
	if watermark == nil {
		return now.Add(-m.cfg.Lookback())
	}
	return time.UnixMilli(*watermark + 1)
}

func (m *TraderMonitor) dispatch(ctx context.Context, account repo.Account, res PollResult) {
	for _, ev := range res.Positions {
		m.deliver(ctx, account, m.formatter.FormatPositionChange(ev), entity.CategoryPositions)
	}
	for _, ev := range res.Ledger {
		m.deliver(ctx, account, m.formatter.FormatLedgerEvent(ev), ev.Kind.Category())
	}
}

func (m *TraderMonitor) deliver(ctx context.Context, account repo.Account, text string, category string) {
	m.metrics.Events.WithLabelValues(category).Inc()
	if err := m.notifier.Deliver(ctx, account.Id, text, category); err != nil {
		m.metrics.DeliveryFailures.WithLabelValues(category).Inc()
		m.logger.Error("deliver event failed", zap.Int64("trader_id", account.Id),
			zap.String("category", category), zap.Error(err))
	}
}
