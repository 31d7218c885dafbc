package monitor

import (
	"context"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/service/exchange"
)

type PositionKind string

const (
	PositionOpened   PositionKind = "opened"
	PositionClosed   PositionKind = "closed"
	PositionFlipped  PositionKind = "flipped"
	PositionAdjusted PositionKind = "adjusted"
)

// PositionChange 某个币种的持仓数量发生变化
type PositionChange struct {
	Address     string
	Coin        string
	OldSize     float64
	NewSize     float64
	Leverage    *int
	NotionalUsd *float64
	RealizedPnl *float64
}

// Kind 由新旧数量的符号和过零判断
func (c PositionChange) Kind() PositionKind {
	switch {
	case c.OldSize == 0 && c.NewSize != 0:
		return PositionOpened
	case c.OldSize != 0 && c.NewSize == 0:
		return PositionClosed
	case (c.OldSize > 0) != (c.NewSize > 0):
		return PositionFlipped
	default:
		return PositionAdjusted
	}
}

type LedgerKind string

const (
	LedgerDeposit     LedgerKind = "deposit"
	LedgerWithdraw    LedgerKind = "withdraw"
	LedgerLiquidation LedgerKind = "liquidation"
	LedgerIgnore      LedgerKind = "ignore"
)

// Category 通知类别, 与账本类型一一对应
func (k LedgerKind) Category() string {
	switch k {
	case LedgerDeposit:
		return entity.CategoryDeposit
	case LedgerWithdraw:
		return entity.CategoryWithdraw
	case LedgerLiquidation:
		return entity.CategoryLiquidation
	default:
		return string(k)
	}
}

type LedgerEvent struct {
	Address string
	Kind    LedgerKind
	Update  exchange.LedgerUpdate
}

// PollResult 单个地址一次轮询的结果
type PollResult struct {
	Bootstrap bool
	Positions []PositionChange
	Ledger    []LedgerEvent
}

func (r PollResult) EventCount() int {
	return len(r.Positions) + len(r.Ledger)
}

// Notifier 把格式化好的文本投递给该地址的订阅者
type Notifier interface {
	Deliver(ctx context.Context, traderId int64, text string, category string) error
}

type Formatter interface {
	FormatPositionChange(ev PositionChange) string
	FormatLedgerEvent(ev LedgerEvent) string
}
