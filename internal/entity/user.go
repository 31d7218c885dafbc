package entity

import (
	"strconv"
	"time"
)

// User 订阅者 (telegram 用户)
type User struct {
	Id             int64  `gorm:"primaryKey;autoIncrement"`
	TelegramId     int64  `gorm:"uniqueIndex;not null"`
	Username       string `gorm:"size:64"`
	IsAdmin        bool   `gorm:"not null;default:false"`
	Status         string `gorm:"size:16;index;not null;default:pending"`
	DeliveryMode   string `gorm:"size:16;not null;default:dm"`
	DeliveryChatId string `gorm:"size:64"`

	AlertPositions    bool `gorm:"not null;default:true"`
	AlertLiquidations bool `gorm:"not null;default:true"`
	AlertDeposits     bool `gorm:"not null;default:true"`
	AlertWithdrawals  bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	UserStatusPending  = "pending"
	UserStatusApproved = "approved"
	UserStatusBlocked  = "blocked"
)

const (
	DeliveryModeDM      = "dm"
	DeliveryModeChannel = "channel"
)

// UserTrader 用户订阅的交易员
type UserTrader struct {
	Id        int64 `gorm:"primaryKey;autoIncrement"`
	UserId    int64 `gorm:"uniqueIndex:uq_user_trader;not null"`
	TraderId  int64 `gorm:"uniqueIndex:uq_user_trader;index;not null"`
	CreatedAt time.Time
}

// 通知类别
const (
	CategoryPositions   = "positions"
	CategoryLiquidation = "liquidation"
	CategoryDeposit     = "deposit"
	CategoryWithdraw    = "withdraw"
)

// AlertEnabled 用户是否订阅了该类别, 未知类别默认放行
func (u User) AlertEnabled(category string) bool {
	switch category {
	case CategoryPositions:
		return u.AlertPositions
	case CategoryLiquidation:
		return u.AlertLiquidations
	case CategoryDeposit:
		return u.AlertDeposits
	case CategoryWithdraw:
		return u.AlertWithdrawals
	default:
		return true
	}
}

// DeliveryTarget 消息发送目标: 频道模式发到频道, 否则私聊
func (u User) DeliveryTarget() string {
	if u.DeliveryMode == DeliveryModeChannel && u.DeliveryChatId != "" {
		return u.DeliveryChatId
	}
	return strconv.FormatInt(u.TelegramId, 10)
}
