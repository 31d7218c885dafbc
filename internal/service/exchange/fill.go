package exchange

import "fmt"

type Fill struct {
	Coin          string `json:"coin"`
	Price         Number `json:"px"`
	Size          Number `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition Number `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     Number `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           Number `json:"fee"`
	FeeToken      string `json:"feeToken"`
	Tid           int64  `json:"tid"`
}

// Key 成交唯一标识, 优先用 tid
func (f Fill) Key() string {
	if f.Tid != 0 {
		return fmt.Sprintf("tid:%d", f.Tid)
	}
	return fmt.Sprintf("%s:%d:%d:%s:%s:%s", f.Hash, f.Oid, f.Time, f.Coin, f.Price, f.Size)
}
