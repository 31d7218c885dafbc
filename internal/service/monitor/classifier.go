package monitor

import (
	"math"
	"sort"
	"strings"

	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"github.com/KNICEX/trader-watcher/pkg/decimalx"
	"github.com/samber/lo"
)

// DiffPositions 对比新旧持仓, 只对带符号数量有变化的币种产生事件, 按币种字典序输出
func DiffPositions(address string, old, cur map[string]exchange.Position, realized map[string]float64) []PositionChange {
	coins := lo.Uniq(append(lo.Keys(old), lo.Keys(cur)...))
	sort.Strings(coins)

	var changes []PositionChange
	for _, coin := range coins {
		op, np := old[coin], cur[coin]
		oldSize, newSize := op.Size.Float(), np.Size.Float()
		if oldSize == newSize {
			continue
		}

		change := PositionChange{
			Address:     address,
			Coin:        coin,
			OldSize:     oldSize,
			NewSize:     newSize,
			Leverage:    pickLeverage(np, op),
			NotionalUsd: pickNotional(np, op),
		}
		if pnl, ok := realized[coin]; ok {
			change.RealizedPnl = &pnl
		}
		changes = append(changes, change)
	}
	return changes
}

func pickLeverage(preferred, fallback exchange.Position) *int {
	for _, p := range []exchange.Position{preferred, fallback} {
		if lev := p.LeverageValue(); lev != 0 {
			return &lev
		}
	}
	return nil
}

func notional(p exchange.Position) *float64 {
	v := decimalx.FloatPtr(p.PositionValue.String())
	if v == nil {
		return nil
	}
	abs := math.Abs(*v)
	return &abs
}

func pickNotional(preferred, fallback exchange.Position) *float64 {
	if v := notional(preferred); v != nil && *v != 0 {
		return v
	}
	return notional(fallback)
}

// AggregateRealizedPnl 按币种汇总成交的已实现盈亏, 跳过 0 和无法解析的值
func AggregateRealizedPnl(fills []exchange.Fill) map[string]float64 {
	pnl := make(map[string]float64)
	for _, f := range fills {
		if f.Coin == "" {
			continue
		}
		v := f.ClosedPnl.Float()
		if v == 0 {
			continue
		}
		pnl[f.Coin] += v
	}
	return pnl
}

// ClassifyLedger 按类型标签做大小写无关的子串匹配, 上游命名变化时仍能识别
func ClassifyLedger(tag string) LedgerKind {
	t := strings.ToLower(tag)
	switch {
	case strings.Contains(t, "deposit"):
		return LedgerDeposit
	case strings.Contains(t, "withdraw"):
		return LedgerWithdraw
	case strings.Contains(t, "liquid"):
		return LedgerLiquidation
	default:
		return LedgerIgnore
	}
}

func ClassifyLedgerUpdates(address string, updates []exchange.LedgerUpdate) []LedgerEvent {
	var events []LedgerEvent
	for _, u := range updates {
		kind := ClassifyLedger(u.Tag())
		if kind == LedgerIgnore {
			continue
		}
		events = append(events, LedgerEvent{Address: address, Kind: kind, Update: u})
	}
	return events
}
