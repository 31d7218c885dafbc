package exchange

import (
	"encoding/json"
)

// LedgerDelta 账本变动明细, 不同类型字段不同, 这里只保留展示用得到的
type LedgerDelta struct {
	Type        string `json:"type"`
	Kind        string `json:"kind,omitempty"`
	Usdc        Number `json:"usdc,omitempty"`
	Amount      Number `json:"amount,omitempty"`
	Usd         Number `json:"usd,omitempty"`
	Value       Number `json:"value,omitempty"`
	Coin        string `json:"coin,omitempty"`
	Token       string `json:"token,omitempty"`
	Fee         Number `json:"fee,omitempty"`
	Destination string `json:"destination,omitempty"`
}

type LedgerUpdate struct {
	Time  int64       `json:"time"`
	Hash  string      `json:"hash"`
	Type  string      `json:"type,omitempty"`
	Kind  string      `json:"kind,omitempty"`
	Delta LedgerDelta `json:"delta"`

	// Raw 原始报文
	Raw json.RawMessage `json:"-"`
}

func (u *LedgerUpdate) UnmarshalJSON(data []byte) error {
	type alias LedgerUpdate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = LedgerUpdate(a)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Tag 变动类型标签, 依次取顶层 type/kind, 再取 delta.type/kind
func (u LedgerUpdate) Tag() string {
	for _, s := range []string{u.Type, u.Kind, u.Delta.Type, u.Delta.Kind} {
		if s != "" {
			return s
		}
	}
	return ""
}

// AmountText 变动金额原文
func (u LedgerUpdate) AmountText() string {
	for _, n := range []Number{u.Delta.Usdc, u.Delta.Amount, u.Delta.Usd, u.Delta.Value} {
		if n != "" {
			return n.String()
		}
	}
	return ""
}

func (u LedgerUpdate) Asset() string {
	if u.Delta.Coin != "" {
		return u.Delta.Coin
	}
	if u.Delta.Token != "" {
		return u.Delta.Token
	}
	return "USD"
}
