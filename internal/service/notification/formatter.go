package notification

import (
	"fmt"
	"math"
	"strings"

	"github.com/KNICEX/trader-watcher/internal/service/monitor"
	"github.com/KNICEX/trader-watcher/pkg/decimalx"
)

// Formatter 生成推送给用户的文本
type Formatter struct{}

var _ monitor.Formatter = Formatter{}

func NewFormatter() Formatter {
	return Formatter{}
}

// ShortAddress 0x1234…abcd
func ShortAddress(address string) string {
	a := strings.ToLower(address)
	if len(a) <= 12 {
		return a
	}
	return a[:6] + "…" + a[len(a)-4:]
}

func side(size float64) string {
	if size > 0 {
		return "Long"
	}
	return "Short"
}

func (f Formatter) FormatPositionChange(ev monitor.PositionChange) string {
	who := ShortAddress(ev.Address)

	lev := "—"
	if ev.Leverage != nil && *ev.Leverage != 0 {
		lev = fmt.Sprintf("%dx", *ev.Leverage)
	}
	notional := "—"
	if ev.NotionalUsd != nil {
		notional = decimalx.FormatUSD(*ev.NotionalUsd)
	}
	pnl := ""
	if ev.RealizedPnl != nil && math.Abs(*ev.RealizedPnl) > 1e-9 {
		pnl = ", PnL: " + decimalx.FormatUSD(*ev.RealizedPnl)
	}

	switch ev.Kind() {
	case monitor.PositionOpened:
		return fmt.Sprintf("Trader %s opened %s %s, size %s, leverage %s%s",
			who, side(ev.NewSize), ev.Coin, notional, lev, pnl)
	case monitor.PositionClosed:
		return fmt.Sprintf("Trader %s closed %s %s%s", who, side(ev.OldSize), ev.Coin, pnl)
	case monitor.PositionFlipped:
		return fmt.Sprintf("Trader %s flipped %s: %s → %s, size %s, leverage %s%s",
			who, ev.Coin, side(ev.OldSize), side(ev.NewSize), notional, lev, pnl)
	default:
		return fmt.Sprintf("Trader %s adjusted %s %s, size %s, leverage %s%s",
			who, side(ev.NewSize), ev.Coin, notional, lev, pnl)
	}
}

func (f Formatter) FormatLedgerEvent(ev monitor.LedgerEvent) string {
	who := ShortAddress(ev.Address)
	u := ev.Update
	amount := strings.TrimSpace(u.AmountText() + " " + u.Asset())

	switch ev.Kind {
	case monitor.LedgerDeposit:
		return fmt.Sprintf("Trader %s deposited %s", who, amount)
	case monitor.LedgerWithdraw:
		return fmt.Sprintf("Trader %s withdrew %s", who, amount)
	case monitor.LedgerLiquidation:
		return fmt.Sprintf("Trader %s was liquidated (%s). Details: %s", who, u.Tag(), details(u.Raw))
	default:
		return fmt.Sprintf("Trader %s: %s. Details: %s", who, u.Tag(), details(u.Raw))
	}
}

func details(raw []byte) string {
	if len(raw) == 0 {
		return "—"
	}
	const limit = 512
	if len(raw) > limit {
		return string(raw[:limit]) + "…"
	}
	return string(raw)
}
