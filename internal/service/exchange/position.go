package exchange

// https://hyperliquid.gitbook.io/hyperliquid-docs/for-developers/api/info-endpoint/perpetuals#retrieve-users-perpetuals-account-summary

type Leverage struct {
	Type   string `json:"type"`
	Value  Number `json:"value"`
	RawUsd Number `json:"rawUsd,omitempty"`
}

// Position 单个币种的永续持仓, Size 为带符号数量 (正多负空)
type Position struct {
	Coin           string   `json:"coin"`
	Size           Number   `json:"szi"`
	EntryPrice     Number   `json:"entryPx"`
	Leverage       Leverage `json:"leverage"`
	PositionValue  Number   `json:"positionValue"`
	UnrealizedPnl  Number   `json:"unrealizedPnl,omitempty"`
	LiquidationPx  Number   `json:"liquidationPx,omitempty"`
	MarginUsed     Number   `json:"marginUsed,omitempty"`
	ReturnOnEquity Number   `json:"returnOnEquity,omitempty"`
}

// LeverageValue 杠杆倍数, 未知时为 0
func (p Position) LeverageValue() int {
	return int(p.Leverage.Value.Float())
}
