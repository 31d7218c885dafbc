package exchange

import (
	"context"
	"time"
)

// AccountSnapshot 账户当前状态
type AccountSnapshot struct {
	Address   string
	Positions map[string]Position // key: coin
	// AccountValue 取 marginSummary.accountValue, 只用于展示
	AccountValue       *string
	Withdrawable       *string
	TotalPositionValue float64
	Time               int64
}

type AccountService interface {
	GetAccountSnapshot(ctx context.Context, address string) (AccountSnapshot, error)
	// GetFills 返回 [start, end] 内的成交
	GetFills(ctx context.Context, address string, start, end time.Time) ([]Fill, error)
	// GetLedgerUpdates 返回 [start, end] 内的非资金费账本变动 (充值/提现/清算...)
	GetLedgerUpdates(ctx context.Context, address string, start, end time.Time) ([]LedgerUpdate, error)
}

type HistoryService interface {
	// GetRecentLedgerUpdates 最近 30 天内的账本变动, 新的在前
	GetRecentLedgerUpdates(ctx context.Context, address string, limit int) ([]LedgerUpdate, error)
}
