package repo

import (
	"context"
	"errors"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepo interface {
	// Subscribe 用户订阅地址, 重复订阅无副作用
	Subscribe(ctx context.Context, userId int64, address string) (entity.Trader, error)
	// Unsubscribe 取消订阅, 最后一个订阅者离开时清空该地址的游标
	Unsubscribe(ctx context.Context, userId int64, address string) error
	ListByUser(ctx context.Context, userId int64) ([]entity.Trader, error)
	ListSubscribers(ctx context.Context, traderId int64) ([]entity.User, error)
}

type subscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepo(db *gorm.DB) SubscriptionRepo {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) Subscribe(ctx context.Context, userId int64, address string) (entity.Trader, error) {
	var trader entity.Trader
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trader, err = getOrCreateTrader(tx, address)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&entity.UserTrader{UserId: userId, TraderId: trader.Id}).Error
	})
	if err != nil {
		return entity.Trader{}, err
	}
	return trader, nil
}

func (r *subscriptionRepo) Unsubscribe(ctx context.Context, userId int64, address string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trader entity.Trader
		err := tx.Where("address = ?", NormalizeAddress(address)).First(&trader).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTraderNotFound
		}
		if err != nil {
			return err
		}

		err = tx.Where("user_id = ? AND trader_id = ?", userId, trader.Id).Delete(&entity.UserTrader{}).Error
		if err != nil {
			return err
		}

		var remaining int64
		err = tx.Model(&entity.UserTrader{}).Where("trader_id = ?", trader.Id).Count(&remaining).Error
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		// 无人订阅后游标作废, 再次订阅时重新走首次观测
		return tx.Where("trader_id = ?", trader.Id).Delete(&entity.TraderState{}).Error
	})
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userId int64) ([]entity.Trader, error) {
	var traders []entity.Trader
	err := r.db.WithContext(ctx).
		Joins("JOIN user_traders ON user_traders.trader_id = traders.id").
		Where("user_traders.user_id = ?", userId).
		Order("traders.address").
		Find(&traders).Error
	if err != nil {
		return nil, err
	}
	return traders, nil
}

func (r *subscriptionRepo) ListSubscribers(ctx context.Context, traderId int64) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_traders ON user_traders.user_id = users.id").
		Where("user_traders.trader_id = ?", traderId).
		Order("users.telegram_id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
