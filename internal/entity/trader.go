package entity

import (
	"time"
)

// Trader 被监控的链上地址, 多个用户共享
type Trader struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Address   string `gorm:"size:42;uniqueIndex;not null"`
	CreatedAt time.Time
}

// TraderState 轮询游标, 与 Trader 一对一
type TraderState struct {
	Id               int64   `gorm:"primaryKey;autoIncrement"`
	TraderId         int64   `gorm:"uniqueIndex;not null"`
	PositionsJson    *string `gorm:"type:text"`
	LastLedgerTsMs   *int64
	LastFillsTsMs    *int64
	LastAccountValue *string `gorm:"size:64"`
	UpdatedAt        time.Time
}
